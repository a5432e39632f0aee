package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saucery/pkg/types"
)

const anilistFixture = `{
	"data": {
		"Media": {
			"title": {"english": "Nekopara", "romaji": "NEKOPARA", "native": "ネコぱら"},
			"episodes": 12,
			"seasonYear": 2020,
			"status": "FINISHED",
			"siteUrl": "https://anilist.co/anime/112840",
			"coverImage": {"extraLarge": "https://s4.anilist.co/cover.jpg"},
			"tags": [{"name": "Catgirl"}, {"name": "Work"}],
			"externalLinks": [{"url": "https://crunchyroll.com/x", "site": "Crunchyroll"}]
		}
	}
}`

func TestAniList_Enrich(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)

		var body struct {
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(112840), body.Variables["id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(anilistFixture))
	}))
	defer srv.Close()

	p := NewAniList(AniListOptions{BaseURL: srv.URL, Enabled: true})

	hit := types.SearchHit{
		Engine:   "tracemoe",
		Metadata: map[string]any{"anilist": float64(112840)},
	}
	require.True(t, p.CanEnrich(hit))

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, "Nekopara", e.Title.English)
	assert.Equal(t, "NEKOPARA", e.Title.Romaji)
	assert.Equal(t, "ネコぱら", e.Title.Native)
	assert.Equal(t, 2020, e.Year)
	assert.Equal(t, types.StatusCompleted, e.Status)
	assert.Equal(t, []string{"Catgirl", "Work"}, e.Tags)
	require.NotNil(t, e.Episodes)
	assert.Equal(t, 12, e.Episodes.Total)
	require.NotNil(t, e.MainLink)
	assert.Equal(t, "https://anilist.co/anime/112840", e.MainLink.URL)
	require.Len(t, e.Links, 1)
	assert.Equal(t, "Crunchyroll", e.Links[0].Name)
	assert.Equal(t, 10, e.Priority)

	// Second lookup for the same ID is served from the memo.
	_, err = p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestAniList_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"data": {"Media": null}, "errors": [{"message": "Not Found.", "status": 404}]}`))
	}))
	defer srv.Close()

	p := NewAniList(AniListOptions{BaseURL: srv.URL, Enabled: true})

	hit := types.SearchHit{Engine: "tracemoe", Metadata: map[string]any{"anilist": float64(1)}}
	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestAniList_StatusMapping(t *testing.T) {
	cases := map[string]types.Status{
		"FINISHED":         types.StatusCompleted,
		"RELEASING":        types.StatusOngoing,
		"NOT_YET_RELEASED": types.StatusAnnounced,
		"CANCELLED":        types.StatusCancelled,
		"HIATUS":           types.StatusOnHold,
		"SOMETHING_NEW":    types.StatusUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, anilistStatus(in), in)
	}
}
