package provider

import (
	"context"
	"errors"

	"saucery/pkg/types"
)

var (
	// ErrRequestFailed is returned when a backend call fails at the
	// transport level (network, timeout, non-2xx).
	ErrRequestFailed = errors.New("enrichment request failed")
	// ErrBadResponse is returned when a backend payload cannot be parsed.
	ErrBadResponse = errors.New("unexpected enrichment response")
)

// Provider is a metadata backend capable of producing an Enrichment for a
// hit it recognizes.
type Provider interface {
	Name() string

	// Priority orders this provider's records during a merge. Lower
	// values are applied first; see types.Merge.
	Priority() int

	// Enabled reports whether the provider can serve requests. A missing
	// required credential makes a provider disabled, never failing.
	Enabled() bool

	// CanEnrich reports whether the provider recognizes the hit. It is a
	// pure predicate and must not perform I/O.
	CanEnrich(hit types.SearchHit) bool

	// Enrich fetches the provider's record for the hit. Returning
	// (nil, nil) means the provider found nothing despite CanEnrich;
	// that is not an error.
	Enrich(ctx context.Context, hit types.SearchHit) (*types.Enrichment, error)
}

// extractID pulls a service ID out of hit metadata, accepting both the bare
// key and its "_id"-suffixed form.
func extractID(hit types.SearchHit, key string) (string, bool) {
	if id, ok := hit.MetaString(key); ok {
		return id, true
	}
	return hit.MetaString(key + "_id")
}
