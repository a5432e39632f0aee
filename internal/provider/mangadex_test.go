package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saucery/pkg/types"
)

const mangadexMangaFixture = `{
	"result": "ok",
	"data": {
		"id": "a96676e5-8ae2-425e-b549-7f15dd34a6d8",
		"type": "manga",
		"attributes": {
			"title": {"en": "Komi Can't Communicate"},
			"altTitles": [{"ja-ro": "Komi-san wa Komyushou Desu."}, {"ja": "古見さんは、コミュ症です。"}],
			"links": {"al": "98145", "mal": "99007", "raw": "https://websunday.net/x"},
			"originalLanguage": "ja",
			"lastChapter": "419",
			"status": "completed",
			"year": 2016,
			"tags": [{"attributes": {"name": {"en": "Comedy"}}}, {"attributes": {"name": {"en": "School Life"}}}]
		}
	}
}`

const mangadexChapterFixture = `{
	"result": "ok",
	"data": {
		"id": "e3c61a01-9a26-4b37-a5d0-9b0ea2a2f5da",
		"type": "chapter",
		"attributes": {"chapter": "12", "title": "A normal day"},
		"relationships": [
			{"type": "scanlation_group", "id": "g1"},
			{
				"type": "manga",
				"id": "a96676e5-8ae2-425e-b549-7f15dd34a6d8",
				"attributes": {
					"title": {"en": "Komi Can't Communicate"},
					"altTitles": [{"ja-ro": "Komi-san wa Komyushou Desu."}],
					"links": {"al": "98145"},
					"originalLanguage": "ja",
					"lastChapter": "419",
					"status": "completed",
					"year": 2016,
					"tags": []
				}
			}
		]
	}
}`

func TestMangaDex_EnrichManga(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga/a96676e5-8ae2-425e-b549-7f15dd34a6d8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mangadexMangaFixture))
	}))
	defer srv.Close()

	p := NewMangaDex(MangaDexOptions{BaseURL: srv.URL, Enabled: true})
	hit := types.SearchHit{
		Engine:   "saucenao",
		Metadata: map[string]any{"mangadex": "a96676e5-8ae2-425e-b549-7f15dd34a6d8"},
	}
	require.True(t, p.CanEnrich(hit))

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, "Komi Can't Communicate", e.Title.English)
	assert.Equal(t, "Komi-san wa Komyushou Desu.", e.Title.Romaji)
	assert.Equal(t, "古見さんは、コミュ症です。", e.Title.Native)
	assert.Equal(t, 2016, e.Year)
	assert.Equal(t, types.StatusCompleted, e.Status)
	assert.Equal(t, []string{"Comedy", "School Life"}, e.Tags)
	require.NotNil(t, e.Chapters)
	assert.Equal(t, 419, e.Chapters.Total)
	assert.Equal(t, 0, e.Chapters.Hit)

	require.NotNil(t, e.MainLink)
	assert.Equal(t, "https://mangadex.org/title/a96676e5-8ae2-425e-b549-7f15dd34a6d8", e.MainLink.URL)

	// External-link keys resolve through the site registry; unknown keys
	// are kept only when they are full URLs.
	urls := make(map[string]bool, len(e.Links))
	for _, l := range e.Links {
		urls[l.URL] = true
	}
	assert.True(t, urls["https://anilist.co/anime/98145"])
	assert.True(t, urls["https://myanimelist.net/anime/99007"])
	assert.True(t, urls["https://websunday.net/x"])
}

func TestMangaDex_EnrichChapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chapter/e3c61a01-9a26-4b37-a5d0-9b0ea2a2f5da", r.URL.Path)
		assert.Equal(t, "manga", r.URL.Query().Get("includes[]"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(mangadexChapterFixture))
	}))
	defer srv.Close()

	p := NewMangaDex(MangaDexOptions{BaseURL: srv.URL, Enabled: true})
	hit := types.SearchHit{
		Engine:   "saucenao",
		Metadata: map[string]any{"mangadex-chapter": "e3c61a01-9a26-4b37-a5d0-9b0ea2a2f5da"},
	}
	require.True(t, p.CanEnrich(hit))

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, "Komi Can't Communicate", e.Title.English)
	require.NotNil(t, e.Chapters)
	assert.Equal(t, 419, e.Chapters.Total)
	assert.Equal(t, 12, e.Chapters.Hit)

	// The record links the parent title, not the chapter.
	require.NotNil(t, e.MainLink)
	assert.Equal(t, "https://mangadex.org/title/a96676e5-8ae2-425e-b549-7f15dd34a6d8", e.MainLink.URL)
}

func TestMangaDex_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result": "error"}`))
	}))
	defer srv.Close()

	p := NewMangaDex(MangaDexOptions{BaseURL: srv.URL, Enabled: true})
	hit := types.SearchHit{Engine: "saucenao", Metadata: map[string]any{"mangadex": "nope"}}

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	assert.Nil(t, e)
}
