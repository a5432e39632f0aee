// Package orchestrator coordinates the search fan-out: engines run in
// parallel, each hit is enriched by every provider that recognizes it, and
// merged records stream back to the caller as they complete.
package orchestrator
