// Package engine contains the reverse-image-search engine adapters.
//
// Each adapter wraps one backend (trace.moe, SauceNao, IQDB) behind the
// Engine interface, translating the backend's wire format into normalized
// SearchHits. Backend identifiers found in result payloads are recognized
// through the sites package and stored under their normalized metadata keys
// so that enrichment providers can claim the hit later.
//
// Engines never panic on backend trouble: transport and parse failures are
// returned as errors wrapping ErrRequestFailed or ErrBadResponse.
package engine
