package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iqdbFixture = `<!DOCTYPE html>
<html><body>
<div id="pages" class="pages">
  <div><table>
    <tr><th>Your image</th></tr>
    <tr><td class="image"><img src="/thu/thu_submitted.jpg"></td></tr>
  </table></div>
  <div><table>
    <tr><th>Best match</th></tr>
    <tr><td class="image"><a href="//danbooru.donmai.us/posts/4471459"><img src="/danbooru/thumb1.jpg"></a></td></tr>
    <tr><td>Rating: s Score: 12</td></tr>
    <tr><td>92% similarity</td></tr>
  </table></div>
  <div><table>
    <tr><th>Additional match</th></tr>
    <tr><td class="image"><a href="//yande.re/post/show/1052725"><img src="/yandere/thumb2.jpg"></a></td></tr>
    <tr><td>41% similarity</td></tr>
  </table></div>
</div>
</body></html>`

func TestIQDB_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://img.example/pic.jpg", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(iqdbFixture))
	}))
	defer srv.Close()

	eng := NewIQDB(IQDBOptions{BaseURL: srv.URL, Enabled: true})

	hits, err := eng.Search(context.Background(), "https://img.example/pic.jpg")
	require.NoError(t, err)
	require.Len(t, hits, 2)

	first := hits[0]
	assert.Equal(t, "iqdb", first.Engine)
	assert.InDelta(t, 0.92, first.Similarity, 1e-9)
	assert.Equal(t, srv.URL+"/danbooru/thumb1.jpg", first.Thumbnail)

	link, ok := first.MetaString("hit_url")
	require.True(t, ok)
	assert.Equal(t, "https://danbooru.donmai.us/posts/4471459", link)
	id, ok := first.MetaString("danbooru")
	require.True(t, ok)
	assert.Equal(t, "4471459", id)

	second := hits[1]
	assert.InDelta(t, 0.41, second.Similarity, 1e-9)
	id, ok = second.MetaString("yandere")
	require.True(t, ok)
	assert.Equal(t, "1052725", id)
}

func TestIQDB_NoMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="pages"><div><table><tr><th>Your image</th></tr></table></div></div></body></html>`))
	}))
	defer srv.Close()

	eng := NewIQDB(IQDBOptions{BaseURL: srv.URL, Enabled: true})

	hits, err := eng.Search(context.Background(), "u")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
