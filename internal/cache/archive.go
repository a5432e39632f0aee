package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"saucery/pkg/types"
)

const (
	imageKeyPrefix  = "image:"
	resultKeyPrefix = "result:"
	sourceKeyPrefix = "source:"

	// phashField is the hash field carrying the encoded perceptual hash.
	phashField = "phash"

	// nextSuffix names the per-image sequence counter under the result
	// prefix; it is not itself a result record.
	nextSuffix = ":next"

	scanBatch = 256
)

// Match pairs an archived image ID with its Hamming distance from the
// queried hash.
type Match struct {
	ID       string
	Distance int
}

// Archive stores perceptual hashes and the enrichment records produced for
// them, so a repeated search can be answered without touching any backend.
// Records damaged in storage are deleted on read and never returned.
type Archive struct {
	client      redis.UniversalClient
	maxDistance int
	maxResults  int
	ttl         time.Duration
	logger      *slog.Logger
}

// ArchiveOptions configures an Archive.
type ArchiveOptions struct {
	Client redis.UniversalClient

	// MaxDistance is the largest Hamming distance FindSimilar still
	// reports as a match.
	MaxDistance int

	// MaxResults caps how many matches FindSimilar returns, keeping the
	// closest ones. Zero means unbounded.
	MaxResults int

	// TTL expires records after the given duration; zero keeps them
	// forever.
	TTL time.Duration

	Logger *slog.Logger
}

// NewArchive creates an archive over an existing Redis client.
func NewArchive(opts ArchiveOptions) *Archive {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{
		client:      opts.Client,
		maxDistance: opts.MaxDistance,
		maxResults:  opts.MaxResults,
		ttl:         opts.TTL,
		logger:      logger.With("component", "archive"),
	}
}

// StoreImage records the perceptual hash of a newly searched image under a
// fresh ID.
func (a *Archive) StoreImage(ctx context.Context, id string, h Hash) error {
	key := imageKeyPrefix + id
	if err := a.client.HSet(ctx, key, phashField, h.Bytes()).Err(); err != nil {
		return fmt.Errorf("store image hash: %w", err)
	}
	a.expire(ctx, key)
	return nil
}

// StoreSource records the original image URL for an archived image.
func (a *Archive) StoreSource(ctx context.Context, id, url string) error {
	key := sourceKeyPrefix + id
	if err := a.client.Set(ctx, key, url, a.ttl).Err(); err != nil {
		return fmt.Errorf("store source: %w", err)
	}
	return nil
}

// Source returns the original image URL for an archived image, or "" when
// none was recorded.
func (a *Archive) Source(ctx context.Context, id string) (string, error) {
	url, err := a.client.Get(ctx, sourceKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load source: %w", err)
	}
	return url, nil
}

// StoreEnrichment appends one enrichment record to an archived image. Each
// record gets its own sequence-numbered key so concurrent stores never
// clobber each other.
func (a *Archive) StoreEnrichment(ctx context.Context, id string, e *types.Enrichment) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode enrichment: %w", err)
	}

	counterKey := resultKeyPrefix + id + nextSuffix
	seq, err := a.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return fmt.Errorf("advance result sequence: %w", err)
	}
	a.expire(ctx, counterKey)

	key := fmt.Sprintf("%s%s:%d", resultKeyPrefix, id, seq)
	if err := a.client.Set(ctx, key, payload, a.ttl).Err(); err != nil {
		return fmt.Errorf("store enrichment: %w", err)
	}
	return nil
}

// Enrichments returns every archived record for an image in the order they
// were stored. Corrupt records are deleted and skipped; an image whose
// records were all corrupt reads as empty, which callers treat as a miss.
func (a *Archive) Enrichments(ctx context.Context, id string) ([]types.Enrichment, error) {
	pattern := resultKeyPrefix + id + ":*"

	type numbered struct {
		seq int
		e   types.Enrichment
	}
	var records []numbered

	iter := a.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasSuffix(key, nextSuffix) {
			continue
		}
		seq, err := strconv.Atoi(key[strings.LastIndexByte(key, ':')+1:])
		if err != nil {
			a.invalidate(ctx, key, err)
			continue
		}

		payload, err := a.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load enrichment: %w", err)
		}

		var e types.Enrichment
		if err := json.Unmarshal(payload, &e); err != nil {
			a.invalidate(ctx, key, err)
			continue
		}
		records = append(records, numbered{seq: seq, e: e})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan enrichments: %w", err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	out := make([]types.Enrichment, 0, len(records))
	for _, r := range records {
		out = append(out, r.e)
	}
	return out, nil
}

// FindSimilar returns the archived images within MaxDistance of the given
// hash, at most MaxResults of them keeping the closest, ordered by
// decreasing distance. The exact duplicate, if present, therefore comes
// last.
func (a *Archive) FindSimilar(ctx context.Context, h Hash) ([]Match, error) {
	var matches []Match

	iter := a.client.Scan(ctx, 0, imageKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		payload, err := a.client.HGet(ctx, key, phashField).Bytes()
		if errors.Is(err, redis.Nil) {
			a.invalidate(ctx, key, errors.New("missing phash field"))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load image hash: %w", err)
		}

		stored, err := ParseBytes(payload)
		if err != nil {
			a.invalidate(ctx, key, err)
			continue
		}

		if d := h.Distance(stored); d <= a.maxDistance {
			matches = append(matches, Match{
				ID:       strings.TrimPrefix(key, imageKeyPrefix),
				Distance: d,
			})
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan image hashes: %w", err)
	}

	// Keep the closest matches, then present them worst-first.
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if a.maxResults > 0 && len(matches) > a.maxResults {
		matches = matches[:a.maxResults]
	}
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	return matches, nil
}

// invalidate drops a record that failed to read back; it will simply be
// recomputed on the next search.
func (a *Archive) invalidate(ctx context.Context, key string, cause error) {
	a.logger.Warn("dropping corrupt archive record", "key", key, "error", cause)
	if err := a.client.Del(ctx, key).Err(); err != nil {
		a.logger.Warn("failed to drop corrupt record", "key", key, "error", err)
	}
}

func (a *Archive) expire(ctx context.Context, key string) {
	if a.ttl <= 0 {
		return
	}
	if err := a.client.Expire(ctx, key, a.ttl).Err(); err != nil {
		a.logger.Warn("failed to set expiry", "key", key, "error", err)
	}
}
