// Package search implements the top-level search flow: a perceptual-hash
// lookup against the archive first, falling back to a full engine fan-out
// whose results are archived for the next time the same image shows up.
package search

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/google/uuid"

	"saucery/internal/cache"
	"saucery/internal/fetch"
	"saucery/internal/orchestrator"
)

// ArchiveEngine is the engine name attached to results served from the
// archive instead of a live backend.
const ArchiveEngine = "archive"

// Service answers search requests, consulting the archive before the
// backends. Archive trouble of any kind degrades to a fresh search; a
// broken Redis must never make searching itself fail.
type Service struct {
	archive *cache.Archive
	orch    *orchestrator.Orchestrator
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

// Options configures a Service.
type Options struct {
	// Archive may be nil, which disables duplicate detection entirely.
	Archive *cache.Archive

	Orchestrator *orchestrator.Orchestrator
	Fetcher      *fetch.Fetcher
	Logger       *slog.Logger
}

// New creates a search service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		archive: opts.Archive,
		orch:    opts.Orchestrator,
		fetcher: opts.Fetcher,
		logger:  logger.With("component", "search"),
	}
}

// Search resolves an image URL to a stream of enrichment results. Archived
// results come back with Engine set to ArchiveEngine; everything else is
// attributed to the engine that produced it.
func (s *Service) Search(ctx context.Context, imageURL string, opts orchestrator.Options) <-chan orchestrator.Result {
	if s.archive == nil {
		return s.orch.Search(ctx, imageURL, opts)
	}
	return s.run(ctx, imageURL, opts, func() (cache.Hash, bool) {
		return s.hashImage(ctx, imageURL)
	})
}

// SearchWithHash is Search for callers that already hold the image's
// perceptual hash, skipping the download-and-hash step.
func (s *Service) SearchWithHash(ctx context.Context, imageURL string, h cache.Hash, opts orchestrator.Options) <-chan orchestrator.Result {
	if s.archive == nil {
		return s.orch.Search(ctx, imageURL, opts)
	}
	return s.run(ctx, imageURL, opts, func() (cache.Hash, bool) {
		return h, true
	})
}

func (s *Service) run(ctx context.Context, imageURL string, opts orchestrator.Options, hash func() (cache.Hash, bool)) <-chan orchestrator.Result {
	out := make(chan orchestrator.Result, 8)
	go func() {
		defer close(out)

		h, hashed := hash()
		if hashed && s.serveArchived(ctx, h, out) {
			return
		}

		// Fresh search. Register the image up front so results can be
		// archived as they stream; registration trouble only costs the
		// archiving, never the search.
		var id string
		if hashed {
			id = uuid.NewString()
			if err := s.archive.StoreImage(ctx, id, h); err != nil {
				s.logger.Warn("failed to archive image hash", "error", err)
				id = ""
			} else if err := s.archive.StoreSource(ctx, id, imageURL); err != nil {
				s.logger.Warn("failed to archive source url", "error", err)
			}
		}

		for r := range s.orch.Search(ctx, imageURL, opts) {
			if id != "" && r.Err == nil && r.Enrichment != nil {
				if err := s.archive.StoreEnrichment(ctx, id, r.Enrichment); err != nil {
					s.logger.Warn("failed to archive enrichment", "error", err)
				}
			}
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// hashImage downloads and hashes the image. Any failure reads as "cannot
// hash", which skips the archive on both the read and write side.
func (s *Service) hashImage(ctx context.Context, imageURL string) (cache.Hash, bool) {
	body, err := s.fetcher.Image(ctx, imageURL)
	if err != nil {
		s.logger.Warn("failed to fetch image for hashing", "url", imageURL, "error", err)
		return 0, false
	}
	h, err := cache.HashReader(bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("failed to hash image", "url", imageURL, "error", err)
		return 0, false
	}
	return h, true
}

// serveArchived streams the archived records of the closest known duplicate,
// if one exists. Matches whose records have all been invalidated are
// skipped; a match with no surviving records is a miss, not an empty answer.
func (s *Service) serveArchived(ctx context.Context, h cache.Hash, out chan<- orchestrator.Result) bool {
	matches, err := s.archive.FindSimilar(ctx, h)
	if err != nil {
		s.logger.Warn("archive lookup failed", "error", err)
		return false
	}

	// FindSimilar orders by decreasing distance; walk backwards so the
	// closest duplicate is tried first.
	for i := len(matches) - 1; i >= 0; i-- {
		records, err := s.archive.Enrichments(ctx, matches[i].ID)
		if err != nil {
			s.logger.Warn("archive read failed", "image", matches[i].ID, "error", err)
			return false
		}
		if len(records) == 0 {
			continue
		}

		s.logger.Debug("serving archived results",
			"image", matches[i].ID, "distance", matches[i].Distance, "records", len(records))
		for j := range records {
			select {
			case out <- orchestrator.Result{Engine: ArchiveEngine, Enrichment: &records[j]}:
			case <-ctx.Done():
				return true
			}
		}
		return true
	}
	return false
}
