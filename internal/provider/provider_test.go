package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saucery/pkg/types"
)

func TestGeneric_LinksFromMetadata(t *testing.T) {
	p := NewGeneric()

	hit := types.SearchHit{
		Engine:     "iqdb",
		Similarity: 0.9,
		Thumbnail:  "https://iqdb.org/thumb.jpg",
		Metadata: map[string]any{
			"danbooru":    "4471459",
			"pixiv":       float64(103905822),
			"member_name": "someone", // not a recognized service
		},
	}
	require.True(t, p.CanEnrich(hit))

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, 0, e.Priority)
	assert.Equal(t, []string{"generic"}, e.Enrichers)
	assert.Equal(t, "https://iqdb.org/thumb.jpg", e.Thumbnail)

	// Keys are sorted, so danbooru becomes the main link.
	require.NotNil(t, e.MainLink)
	assert.Equal(t, "https://danbooru.donmai.us/posts/4471459", e.MainLink.URL)
	require.Len(t, e.Links, 1)
	assert.Equal(t, "https://www.pixiv.net/artworks/103905822", e.Links[0].URL)
	assert.Equal(t, "Pixiv Artwork", e.Links[0].Name)
}

func TestGeneric_NothingUsable(t *testing.T) {
	p := NewGeneric()

	hit := types.SearchHit{Engine: "iqdb", Similarity: 0.5}
	assert.False(t, p.CanEnrich(hit))

	// Metadata with no recognized keys and no thumbnail yields no record.
	hit.Metadata = map[string]any{"member_name": "someone"}
	require.True(t, p.CanEnrich(hit))
	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestTraceMoeNative(t *testing.T) {
	p := NewTraceMoeNative()

	hit := types.SearchHit{
		Engine:     "tracemoe",
		Similarity: 0.98,
		Metadata: map[string]any{
			"anilist":       int64(99939),
			"hit_episode":   float64(1),
			"hit_timestamp": 97.75,
			"hit_image":     "https://media.trace.moe/image/x.jpg",
			"hit_video":     "https://media.trace.moe/video/x.mp4",
		},
	}
	require.True(t, p.CanEnrich(hit))

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	require.NotNil(t, e)
	require.NotNil(t, e.Episodes)

	assert.Equal(t, 1, e.Episodes.Hit)
	assert.Equal(t, 97.75, e.Episodes.HitTimestamp)
	assert.Equal(t, "https://media.trace.moe/image/x.jpg", e.Episodes.HitImage)
	assert.Equal(t, "https://media.trace.moe/video/x.mp4", e.Episodes.HitVideo)
	assert.Equal(t, 1, e.Priority)
}

func TestTraceMoeNative_WrongEngine(t *testing.T) {
	p := NewTraceMoeNative()
	hit := types.SearchHit{
		Engine:   "saucenao",
		Metadata: map[string]any{"hit_episode": float64(3)},
	}
	assert.False(t, p.CanEnrich(hit))
}

func TestSauceNaoNative(t *testing.T) {
	p := NewSauceNaoNative()

	hit := types.SearchHit{
		Engine:    "saucenao",
		Thumbnail: "https://img1.saucenao.com/thumb.jpg",
		Metadata: map[string]any{
			"gelbooru": "6600580",
			"source":   "https://example.com/original",
		},
	}
	require.True(t, p.CanEnrich(hit))

	e, err := p.Enrich(context.Background(), hit)
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, "https://img1.saucenao.com/thumb.jpg", e.Thumbnail)
	require.Len(t, e.Links, 1)
	assert.Equal(t, "https://gelbooru.com/index.php?page=post&s=view&id=6600580", e.Links[0].URL)
}

func TestExtractID_SuffixedKey(t *testing.T) {
	hit := types.SearchHit{Metadata: map[string]any{"pixiv_id": float64(123)}}
	id, ok := extractID(hit, "pixiv")
	require.True(t, ok)
	assert.Equal(t, "123", id)
}
