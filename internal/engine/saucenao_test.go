package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sauceNaoFixture = `{
	"header": {"status": 0, "results_returned": 2},
	"results": [
		{
			"header": {
				"similarity": "92.51",
				"thumbnail": "https://img1.saucenao.com/res/pixiv/thumb.jpg",
				"index_name": "Index #5: Pixiv Images"
			},
			"data": {
				"ext_urls": ["https://danbooru.donmai.us/posts/4471459", "https://www.pixiv.net/artworks/103905822"],
				"pixiv_id": 103905822,
				"member_name": "someone"
			}
		},
		{
			"header": {
				"similarity": "31.02",
				"thumbnail": "https://img1.saucenao.com/res/low.jpg",
				"index_name": "Index #9: Danbooru"
			},
			"data": {
				"ext_urls": ["https://gelbooru.com/index.php?page=post&s=view&id=6600580"],
				"source": "https://example.com/original"
			}
		}
	]
}`

func TestSauceNao_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.php", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("output_type"))
		assert.Equal(t, "sn-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "https://img.example/pic.png", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sauceNaoFixture))
	}))
	defer srv.Close()

	eng := NewSauceNao(SauceNaoOptions{APIKey: "sn-key", BaseURL: srv.URL, Enabled: true})

	hits, err := eng.Search(context.Background(), "https://img.example/pic.png")
	require.NoError(t, err)
	require.Len(t, hits, 2)

	first := hits[0]
	assert.Equal(t, "saucenao", first.Engine)
	assert.InDelta(t, 0.9251, first.Similarity, 1e-9)

	// Recognized ext_urls become normalized service keys.
	id, ok := first.MetaString("danbooru")
	require.True(t, ok)
	assert.Equal(t, "4471459", id)
	id, ok = first.MetaString("pixiv")
	require.True(t, ok)
	assert.Equal(t, "103905822", id)
	// Raw data fields are carried along.
	name, ok := first.MetaString("member_name")
	require.True(t, ok)
	assert.Equal(t, "someone", name)
	// ext_urls itself is not copied verbatim.
	_, raw := first.Metadata["ext_urls"]
	assert.False(t, raw)

	second := hits[1]
	assert.InDelta(t, 0.3102, second.Similarity, 1e-9)
	id, ok = second.MetaString("gelbooru")
	require.True(t, ok)
	assert.Equal(t, "6600580", id)
}

func TestSauceNao_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"header": {"status": -1, "message": "invalid api key"}, "results": []}`))
	}))
	defer srv.Close()

	eng := NewSauceNao(SauceNaoOptions{APIKey: "bad", BaseURL: srv.URL, Enabled: true})

	_, err := eng.Search(context.Background(), "u")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestSauceNao_DisabledWithoutKey(t *testing.T) {
	// A missing credential disables the engine instead of failing requests.
	eng := NewSauceNao(SauceNaoOptions{Enabled: true})
	assert.False(t, eng.Enabled())

	eng = NewSauceNao(SauceNaoOptions{APIKey: "k", Enabled: true})
	assert.True(t, eng.Enabled())

	eng = NewSauceNao(SauceNaoOptions{APIKey: "k", Enabled: false})
	assert.False(t, eng.Enabled())
}
