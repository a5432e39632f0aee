package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"saucery/internal/backoff"
	"saucery/internal/sites"
	"saucery/pkg/types"
)

const (
	// DefaultSauceNaoURL is the public SauceNao API endpoint.
	DefaultSauceNaoURL = "https://saucenao.com"

	sauceNaoName    = "saucenao"
	sauceNaoTimeout = 30 * time.Second
)

// SauceNao searches the SauceNao multi-index reverse-image database.
// The API requires a key; without one the adapter reports itself disabled.
type SauceNao struct {
	apiKey     string
	baseURL    string
	enabled    bool
	threshold  *float64
	limit      *int
	httpClient *http.Client
	logger     *slog.Logger
}

// SauceNaoOptions configures a SauceNao engine instance.
type SauceNaoOptions struct {
	APIKey    string
	BaseURL   string // defaults to DefaultSauceNaoURL
	Enabled   bool
	Threshold *float64
	Limit     *int
	Logger    *slog.Logger
}

// NewSauceNao creates a SauceNao engine adapter.
func NewSauceNao(opts SauceNaoOptions) *SauceNao {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultSauceNaoURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SauceNao{
		apiKey:    opts.APIKey,
		baseURL:   baseURL,
		enabled:   opts.Enabled,
		threshold: opts.Threshold,
		limit:     opts.Limit,
		httpClient: &http.Client{
			Timeout: sauceNaoTimeout,
		},
		logger: logger.With("engine", sauceNaoName),
	}
}

func (s *SauceNao) Name() string { return sauceNaoName }

// Enabled requires an API key: SauceNao rejects anonymous API calls.
func (s *SauceNao) Enabled() bool { return s.enabled && s.apiKey != "" }

func (s *SauceNao) Threshold() (float64, bool) {
	if s.threshold == nil {
		return 0, false
	}
	return *s.threshold, true
}

func (s *SauceNao) Limit() (int, bool) {
	if s.limit == nil {
		return 0, false
	}
	return *s.limit, true
}

type sauceNaoResult struct {
	Header struct {
		Similarity string `json:"similarity"` // "0".."100"
		Thumbnail  string `json:"thumbnail"`
		IndexName  string `json:"index_name"`
	} `json:"header"`
	Data map[string]any `json:"data"`
}

type sauceNaoResponse struct {
	Header struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"header"`
	Results []sauceNaoResult `json:"results"`
}

func (s *SauceNao) Search(ctx context.Context, imageURL string) ([]types.SearchHit, error) {
	params := url.Values{}
	params.Set("output_type", "2")
	params.Set("api_key", s.apiKey)
	params.Set("db", "999")
	params.Set("url", imageURL)
	endpoint := fmt.Sprintf("%s/search.php?%s", s.baseURL, params.Encode())

	decoded, err := backoff.Retry(ctx, backoff.DefaultConfig(), func() (*sauceNaoResponse, error) {
		return s.query(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}
	if decoded.Header.Status < 0 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrBadResponse, decoded.Header.Status, decoded.Header.Message)
	}

	hits := make([]types.SearchHit, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		similarity, err := strconv.ParseFloat(r.Header.Similarity, 64)
		if err != nil {
			s.logger.Warn("unparseable similarity", "value", r.Header.Similarity)
			continue
		}

		metadata := make(map[string]any, len(r.Data)+2)
		for k, v := range r.Data {
			if k == "ext_urls" {
				continue
			}
			metadata[k] = v
		}

		// Fold recognized external URLs into normalized service keys so
		// providers can claim the hit.
		if extURLs, ok := r.Data["ext_urls"].([]any); ok {
			for _, raw := range extURLs {
				link, ok := raw.(string)
				if !ok {
					continue
				}
				if site, id, ok := sites.ParseURL(link); ok {
					metadata[site.Key] = id
				}
			}
		}

		hits = append(hits, types.SearchHit{
			Engine:     sauceNaoName,
			Similarity: similarity / 100,
			Thumbnail:  r.Header.Thumbnail,
			Metadata:   metadata,
		})
	}

	s.logger.Debug("search complete", "hits", len(hits))
	return hits, nil
}

func (s *SauceNao) query(ctx context.Context, endpoint string) (*sauceNaoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, body)
	}

	var decoded sauceNaoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &decoded, nil
}
