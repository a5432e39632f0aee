// Package cache implements the duplicate-detection archive: perceptual
// hashes of previously searched images and their enrichment results, stored
// in Redis. Lookups match by Hamming distance so recompressed or resized
// copies of a known image still hit.
package cache
