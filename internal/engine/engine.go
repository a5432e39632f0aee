package engine

import (
	"context"
	"errors"

	"saucery/pkg/types"
)

var (
	// ErrRequestFailed is returned when a backend call fails at the
	// transport level (network, timeout, non-2xx).
	ErrRequestFailed = errors.New("search request failed")
	// ErrBadResponse is returned when a backend payload cannot be parsed.
	ErrBadResponse = errors.New("unexpected search response")
)

// Engine is a reverse-image-search backend capable of producing hits for a
// submitted image URL. Implementations normalize backend-native similarity
// scales to [0, 1] before returning hits.
type Engine interface {
	Name() string

	// Enabled reports whether the engine can serve requests. A missing
	// required credential makes an engine disabled, never failing.
	Enabled() bool

	// Threshold is the engine's default minimum similarity, if it has one.
	Threshold() (float64, bool)

	// Limit is the engine's default result cap, if it has one.
	Limit() (int, bool)

	Search(ctx context.Context, imageURL string) ([]types.SearchHit, error)
}

// FilterSearch runs e.Search and post-processes the hits: explicit arguments
// override the engine's own defaults, the similarity threshold is applied
// strictly before the limit so a small limit never keeps low-quality hits.
func FilterSearch(ctx context.Context, e Engine, imageURL string, limit *int, threshold *float64) ([]types.SearchHit, error) {
	hits, err := e.Search(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	min, hasMin := e.Threshold()
	if threshold != nil {
		min, hasMin = *threshold, true
	}
	if hasMin {
		kept := hits[:0]
		for _, h := range hits {
			if h.Similarity >= min {
				kept = append(kept, h)
			}
		}
		hits = kept
	}

	max, hasMax := e.Limit()
	if limit != nil {
		max, hasMax = *limit, true
	}
	if hasMax && len(hits) > max {
		hits = hits[:max]
	}

	return hits, nil
}
