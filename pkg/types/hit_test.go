package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchHit_Validate(t *testing.T) {
	tests := []struct {
		name    string
		hit     SearchHit
		wantErr error
	}{
		{
			name: "valid",
			hit:  SearchHit{Engine: "tracemoe", Similarity: 0.93},
		},
		{
			name:    "missing engine",
			hit:     SearchHit{Similarity: 0.5},
			wantErr: ErrMissingEngine,
		},
		{
			name:    "similarity above one",
			hit:     SearchHit{Engine: "saucenao", Similarity: 87.2},
			wantErr: ErrInvalidSimilarity,
		},
		{
			name:    "negative similarity",
			hit:     SearchHit{Engine: "iqdb", Similarity: -0.1},
			wantErr: ErrInvalidSimilarity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hit.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSearchHit_MetaString(t *testing.T) {
	hit := SearchHit{
		Engine:     "saucenao",
		Similarity: 0.9,
		Metadata: map[string]any{
			"anilist":  float64(21),
			"danbooru": "4471459",
			"at":       float64(1284.5),
			"empty":    "",
			"nil":      nil,
		},
	}

	v, ok := hit.MetaString("anilist")
	assert.True(t, ok)
	assert.Equal(t, "21", v)

	v, ok = hit.MetaString("danbooru")
	assert.True(t, ok)
	assert.Equal(t, "4471459", v)

	v, ok = hit.MetaString("at")
	assert.True(t, ok)
	assert.Equal(t, "1284.5", v)

	_, ok = hit.MetaString("empty")
	assert.False(t, ok)

	_, ok = hit.MetaString("nil")
	assert.False(t, ok)

	_, ok = hit.MetaString("missing")
	assert.False(t, ok)
}
