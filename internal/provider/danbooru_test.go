package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saucery/pkg/types"
)

func danbooruServer(t *testing.T, post string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posts/4471459.json" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = fmt.Fprint(w, `{"success": false}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, post)
	}))
}

func TestDanbooru_Enrich(t *testing.T) {
	srv := danbooruServer(t, `{
		"id": 4471459,
		"source": "https://www.pixiv.net/artworks/103905822",
		"file_url": "https://cdn.donmai.us/original/ab/cd/file.png",
		"file_ext": "png",
		"tag_string_general": "1girl smile",
		"tag_string_artist": "some_artist",
		"tag_string_character": "hakurei_reimu",
		"is_deleted": false,
		"is_banned": false
	}`)
	defer srv.Close()

	p := NewDanbooru(DanbooruOptions{BaseURL: srv.URL, Enabled: true})

	hit := types.SearchHit{Engine: "iqdb", Metadata: map[string]any{"danbooru": "4471459"}}
	require.True(t, p.CanEnrich(hit))

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, []string{"1girl", "smile"}, e.Tags)
	assert.Equal(t, []string{"some_artist"}, e.Artists)
	assert.Equal(t, []string{"hakurei_reimu"}, e.Characters)
	assert.Equal(t, "https://cdn.donmai.us/original/ab/cd/file.png", e.Thumbnail)
	assert.Empty(t, e.Video)
	require.NotNil(t, e.MainLink)
	assert.Equal(t, "https://danbooru.donmai.us/posts/4471459", e.MainLink.URL)
	require.Len(t, e.Links, 1)
	assert.Equal(t, "https://www.pixiv.net/artworks/103905822", e.Links[0].URL)
}

func TestDanbooru_SuppressesMediaOnlyNotText(t *testing.T) {
	cases := []struct {
		name string
		post string
	}{
		{"deleted", `{"id": 4471459, "file_url": "https://cdn.donmai.us/x.png", "file_ext": "png",
			"tag_string_general": "1girl", "is_deleted": true}`},
		{"banned", `{"id": 4471459, "file_url": "https://cdn.donmai.us/x.png", "file_ext": "png",
			"tag_string_general": "1girl", "is_banned": true}`},
		{"suppressed tag", `{"id": 4471459, "file_url": "https://cdn.donmai.us/x.png", "file_ext": "png",
			"tag_string_general": "1girl loli"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := danbooruServer(t, tc.post)
			defer srv.Close()

			p := NewDanbooru(DanbooruOptions{BaseURL: srv.URL, Enabled: true})
			hit := types.SearchHit{Engine: "iqdb", Metadata: map[string]any{"danbooru": "4471459"}}

			e, err := p.Enrich(context.Background(), hit)
			require.NoError(t, err)
			require.NotNil(t, e)

			// Textual metadata survives; media URLs do not.
			assert.NotEmpty(t, e.Tags)
			assert.NotNil(t, e.MainLink)
			assert.Empty(t, e.Thumbnail)
			assert.Empty(t, e.Video)
		})
	}
}

func TestDanbooru_VideoExtension(t *testing.T) {
	srv := danbooruServer(t, `{"id": 4471459, "file_url": "https://cdn.donmai.us/clip.webm",
		"file_ext": "webm", "tag_string_general": "animated"}`)
	defer srv.Close()

	p := NewDanbooru(DanbooruOptions{BaseURL: srv.URL, Enabled: true})
	hit := types.SearchHit{Engine: "iqdb", Metadata: map[string]any{"danbooru": "4471459"}}

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Empty(t, e.Thumbnail)
	assert.Equal(t, "https://cdn.donmai.us/clip.webm", e.Video)
}

func TestDanbooru_NotFound(t *testing.T) {
	srv := danbooruServer(t, `{}`)
	defer srv.Close()

	p := NewDanbooru(DanbooruOptions{BaseURL: srv.URL, Enabled: true})
	hit := types.SearchHit{Engine: "iqdb", Metadata: map[string]any{"danbooru": "999999999"}}

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	assert.Nil(t, e)
}
