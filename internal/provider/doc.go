// Package provider contains the enrichment provider adapters.
//
// A provider claims a hit through CanEnrich (a pure predicate over the hit's
// metadata, typically the presence of its service's ID key) and resolves it
// to a partial Enrichment record through a backend lookup. The orchestrator
// merges all partial records for a hit by priority; the concrete priorities
// used here are:
//
//	generic                     0   (seeds links/thumbnail from raw metadata)
//	tracemoe/saucenao native    1   (derived from the engine's own payload)
//	gelbooru, safebooru         5
//	anilist, danbooru, mangadex 10
//
// Lookup results are memoized in a small expirable LRU because the same
// foreign ID routinely appears in several hits of one request.
package provider
