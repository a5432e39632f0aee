package types

import (
	"fmt"
	"strconv"
)

// SearchHit represents a single match returned by one search engine.
// A hit is immutable once produced; providers only read it.
type SearchHit struct {
	// Engine is the identifier of the engine that produced the hit.
	Engine string `json:"engine"`

	// Similarity is the engine-reported match score normalized to [0, 1].
	Similarity float64 `json:"similarity"`

	// Thumbnail is an optional preview image URL.
	Thumbnail string `json:"thumbnail,omitempty"`

	// Metadata carries loosely typed backend identifiers keyed by
	// recognized service names (e.g. "anilist", "danbooru", "hit_url").
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks if the hit is well-formed.
func (h *SearchHit) Validate() error {
	if h.Engine == "" {
		return ErrMissingEngine
	}
	if h.Similarity < 0 || h.Similarity > 1 {
		return fmt.Errorf("%w: %f", ErrInvalidSimilarity, h.Similarity)
	}
	return nil
}

// MetaString returns the metadata value for key rendered as a string.
// Numeric values (including float64 from JSON decoding) are formatted
// without a fractional part when they are whole numbers.
func (h *SearchHit) MetaString(key string) (string, bool) {
	v, ok := h.Metadata[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		if val == "" {
			return "", false
		}
		return val, true
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10), true
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}
