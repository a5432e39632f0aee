package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"saucery/internal/backoff"
	"saucery/pkg/types"
)

const (
	// DefaultTraceMoeURL is the public trace.moe API endpoint.
	DefaultTraceMoeURL = "https://api.trace.moe"

	traceMoeName    = "tracemoe"
	traceMoeTimeout = 30 * time.Second
)

// TraceMoe searches the trace.moe anime scene index. The backend keys its
// results to AniList IDs and reports the matched episode and timestamp,
// which downstream providers turn into full anime records.
type TraceMoe struct {
	apiKey     string
	baseURL    string
	enabled    bool
	threshold  *float64
	limit      *int
	httpClient *http.Client
	logger     *slog.Logger
}

// TraceMoeOptions configures a TraceMoe engine instance.
type TraceMoeOptions struct {
	APIKey    string // optional, raises the backend rate limit
	BaseURL   string // defaults to DefaultTraceMoeURL
	Enabled   bool
	Threshold *float64
	Limit     *int
	Logger    *slog.Logger
}

// NewTraceMoe creates a trace.moe engine adapter.
func NewTraceMoe(opts TraceMoeOptions) *TraceMoe {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultTraceMoeURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TraceMoe{
		apiKey:    opts.APIKey,
		baseURL:   baseURL,
		enabled:   opts.Enabled,
		threshold: opts.Threshold,
		limit:     opts.Limit,
		httpClient: &http.Client{
			Timeout: traceMoeTimeout,
		},
		logger: logger.With("engine", traceMoeName),
	}
}

func (t *TraceMoe) Name() string { return traceMoeName }

func (t *TraceMoe) Enabled() bool { return t.enabled }

func (t *TraceMoe) Threshold() (float64, bool) {
	if t.threshold == nil {
		return 0, false
	}
	return *t.threshold, true
}

func (t *TraceMoe) Limit() (int, bool) {
	if t.limit == nil {
		return 0, false
	}
	return *t.limit, true
}

type traceMoeResult struct {
	Anilist    int64   `json:"anilist"`
	Filename   string  `json:"filename"`
	Episode    any     `json:"episode"` // number, free-form string, or null
	From       float64 `json:"from"`
	To         float64 `json:"to"`
	Similarity float64 `json:"similarity"`
	Video      string  `json:"video"`
	Image      string  `json:"image"`
}

type traceMoeResponse struct {
	Error  string           `json:"error"`
	Result []traceMoeResult `json:"result"`
}

func (t *TraceMoe) Search(ctx context.Context, imageURL string) ([]types.SearchHit, error) {
	endpoint := fmt.Sprintf("%s/search?cutBorders&url=%s", t.baseURL, url.QueryEscape(imageURL))

	decoded, err := backoff.Retry(ctx, backoff.DefaultConfig(), func() (*traceMoeResponse, error) {
		return t.query(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, decoded.Error)
	}

	hits := make([]types.SearchHit, 0, len(decoded.Result))
	for _, r := range decoded.Result {
		metadata := map[string]any{
			"anilist":       r.Anilist,
			"hit_timestamp": r.From,
			"hit_image":     r.Image,
			"hit_video":     r.Video,
		}
		switch ep := r.Episode.(type) {
		case float64:
			metadata["hit_episode"] = ep
		case string:
			if ep != "" {
				metadata["episode"] = ep
			}
		}

		hits = append(hits, types.SearchHit{
			Engine:     traceMoeName,
			Similarity: r.Similarity,
			Thumbnail:  r.Image,
			Metadata:   metadata,
		})
	}

	t.logger.Debug("search complete", "hits", len(hits))
	return hits, nil
}

func (t *TraceMoe) query(ctx context.Context, endpoint string) (*traceMoeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if t.apiKey != "" {
		req.Header.Set("x-trace-key", t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, body)
	}

	var decoded traceMoeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &decoded, nil
}
