package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"saucery/internal/engine"
	"saucery/internal/provider"
	"saucery/pkg/types"
)

// resultBuffer smooths bursts when several engines answer at once without
// letting a slow consumer stall the fan-out for long.
const resultBuffer = 32

// Result is one element of the orchestrated output stream: either a merged
// enrichment for a single hit, or an engine-level failure. Provider-level
// failures never surface here; the merge simply proceeds without them.
type Result struct {
	// Engine names the engine the result originated from.
	Engine string

	Enrichment *types.Enrichment
	Err        error
}

// Options narrows one search request. Zero values impose nothing beyond the
// engines' own defaults.
type Options struct {
	// Engines restricts the search to the named engines. Empty means all.
	Engines []string

	Threshold *float64
	Limit     *int
}

// Orchestrator fans a search out to every engine in parallel, enriches each
// hit through every claiming provider, and streams merged records back as
// they complete. One engine or provider failing never blocks the others.
type Orchestrator struct {
	engines   []engine.Engine
	providers []provider.Provider
	sem       *semaphore.Weighted
	logger    *slog.Logger
}

// New creates an orchestrator. concurrency bounds the number of in-flight
// backend calls across all engines and providers.
func New(engines []engine.Engine, providers []provider.Provider, concurrency int, logger *slog.Logger) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		engines:   engines,
		providers: providers,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		logger:    logger,
	}
}

// Search submits the image URL to the configured engines and returns a
// stream of merged enrichments. The channel is closed once every engine and
// every enrichment for every hit has finished. Cancelling the context stops
// all in-flight work and closes the stream.
func (o *Orchestrator) Search(ctx context.Context, imageURL string, opts Options) <-chan Result {
	out := make(chan Result, resultBuffer)

	go func() {
		defer close(out)

		var wg sync.WaitGroup
		for _, e := range o.selectEngines(opts.Engines) {
			wg.Add(1)
			go func(e engine.Engine) {
				defer wg.Done()
				o.searchEngine(ctx, e, imageURL, opts, out)
			}(e)
		}
		wg.Wait()
	}()

	return out
}

func (o *Orchestrator) selectEngines(names []string) []engine.Engine {
	if len(names) == 0 {
		return o.engines
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	selected := make([]engine.Engine, 0, len(names))
	for _, e := range o.engines {
		if wanted[e.Name()] {
			selected = append(selected, e)
		}
	}
	return selected
}

func (o *Orchestrator) searchEngine(ctx context.Context, e engine.Engine, imageURL string, opts Options, out chan<- Result) {
	hits, err := o.boundedSearch(ctx, e, imageURL, opts)
	if err != nil {
		o.logger.Warn("engine search failed", "engine", e.Name(), "error", err)
		emit(ctx, out, Result{Engine: e.Name(), Err: err})
		return
	}
	o.logger.Debug("engine search complete", "engine", e.Name(), "hits", len(hits))

	var wg sync.WaitGroup
	for _, hit := range hits {
		wg.Add(1)
		go func(hit types.SearchHit) {
			defer wg.Done()
			if merged := o.enrichHit(ctx, hit); merged != nil {
				emit(ctx, out, Result{Engine: hit.Engine, Enrichment: merged})
			}
		}(hit)
	}
	wg.Wait()
}

// boundedSearch holds a concurrency slot only for the duration of the
// backend call itself, never while waiting on downstream work.
func (o *Orchestrator) boundedSearch(ctx context.Context, e engine.Engine, imageURL string, opts Options) ([]types.SearchHit, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.sem.Release(1)
	return engine.FilterSearch(ctx, e, imageURL, opts.Limit, opts.Threshold)
}

// enrichHit runs every claiming provider in parallel and merges their
// partial records. A provider error is logged and dropped; the remaining
// partials still merge.
func (o *Orchestrator) enrichHit(ctx context.Context, hit types.SearchHit) *types.Enrichment {
	var (
		mu       sync.Mutex
		partials []types.Enrichment
		wg       sync.WaitGroup
	)

	for _, p := range o.providers {
		if !p.Enabled() || !p.CanEnrich(hit) {
			continue
		}
		wg.Add(1)
		go func(p provider.Provider) {
			defer wg.Done()
			e, err := o.boundedEnrich(ctx, p, hit)
			if err != nil {
				o.logger.Warn("provider enrich failed",
					"provider", p.Name(), "engine", hit.Engine, "error", err)
				return
			}
			if e == nil || e.Empty() {
				return
			}
			mu.Lock()
			partials = append(partials, *e)
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	return types.Merge(partials)
}

func (o *Orchestrator) boundedEnrich(ctx context.Context, p provider.Provider, hit types.SearchHit) (*types.Enrichment, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.sem.Release(1)
	return p.Enrich(ctx, hit)
}

// emit delivers a result unless the request has been cancelled.
func emit(ctx context.Context, out chan<- Result, r Result) {
	select {
	case out <- r:
	case <-ctx.Done():
	}
}
