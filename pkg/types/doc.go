// Package types provides shared type definitions for the saucery search core.
//
// This package defines the domain types passed between search engines,
// enrichment providers, the orchestrator and the duplicate cache.
//
// # Core Types
//
// SearchHit is a single match produced by one reverse-image-search engine:
//
//	hit := types.SearchHit{
//	    Engine:     "tracemoe",
//	    Similarity: 0.97,
//	    Thumbnail:  "https://media.trace.moe/image/...",
//	    Metadata:   map[string]any{"anilist": "21"},
//	}
//
// Similarity is always normalized to [0, 1] by the engine adapter regardless
// of the backend's native scale. Metadata carries loosely typed backend
// identifiers (numeric IDs, URLs, episode numbers) that providers use to
// decide whether they can enrich the hit.
//
// Enrichment is a partial or merged metadata record describing what a hit
// depicts. Multiple partial records for the same hit are collapsed with
// Merge, which overlays records in ascending priority order: a field already
// present is never overwritten, and the Tags, Artists, Characters and
// Enrichers sets are unioned across all contributors.
//
// # Validation
//
// SearchHit implements a Validate method used by adapter tests:
//
//	if err := hit.Validate(); err != nil {
//	    return err
//	}
package types
