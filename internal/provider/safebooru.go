package provider

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
	"saucery/internal/sites"
	"saucery/pkg/types"
)

const (
	// DefaultSafebooruURL is the public Safebooru endpoint.
	DefaultSafebooruURL = "https://safebooru.org"

	safebooruName    = "safebooru"
	safebooruTimeout = 15 * time.Second
)

// Safebooru resolves Safebooru post IDs via the dapi JSON endpoint. The
// endpoint returns no file URL, so the image location is assembled from the
// post's directory and file name.
type Safebooru struct {
	baseURL    string
	enabled    bool
	httpClient *http.Client
	logger     *slog.Logger
	memo       *memo
}

// SafebooruOptions configures a Safebooru provider instance.
type SafebooruOptions struct {
	BaseURL string // defaults to DefaultSafebooruURL
	Enabled bool
	Logger  *slog.Logger
}

// NewSafebooru creates a Safebooru provider.
func NewSafebooru(opts SafebooruOptions) *Safebooru {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultSafebooruURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Safebooru{
		baseURL: baseURL,
		enabled: opts.Enabled,
		httpClient: &http.Client{
			Timeout: safebooruTimeout,
		},
		logger: logger.With("provider", safebooruName),
		memo:   newMemo(),
	}
}

func (s *Safebooru) Name() string  { return safebooruName }
func (s *Safebooru) Priority() int { return 5 }
func (s *Safebooru) Enabled() bool { return s.enabled }

func (s *Safebooru) CanEnrich(hit types.SearchHit) bool {
	_, ok := extractID(hit, safebooruName)
	return ok
}

type safebooruPost struct {
	ID        int64  `json:"id"`
	Directory string `json:"directory"`
	Image     string `json:"image"`
	Tags      string `json:"tags"`
}

func (s *Safebooru) Enrich(ctx context.Context, hit types.SearchHit) (*types.Enrichment, error) {
	id, ok := extractID(hit, safebooruName)
	if !ok {
		return nil, nil
	}

	memoKey := safebooruName + ":" + id
	if cached, ok := s.memo.get(memoKey); ok {
		return cached, nil
	}

	posts, err := backoff.Retry(ctx, backoff.DefaultConfig(), func() ([]safebooruPost, error) {
		return s.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		s.memo.add(memoKey, nil)
		return nil, nil
	}
	post := posts[0]

	e := &types.Enrichment{
		Tags:      splitTags(post.Tags),
		Priority:  s.Priority(),
		Enrichers: []string{safebooruName},
	}
	if site := sites.FromKey(safebooruName); site != nil {
		e.MainLink = &types.Link{URL: site.PostURL(id), Name: site.Name}
	}
	if post.Directory != "" && post.Image != "" {
		e.Thumbnail = fmt.Sprintf("%s/images/%s/%s", s.baseURL, post.Directory, post.Image)
	}

	s.memo.add(memoKey, e)
	return e, nil
}

func (s *Safebooru) fetch(ctx context.Context, id string) ([]safebooruPost, error) {
	endpoint := fmt.Sprintf("%s/index.php?page=dapi&s=post&q=index&json=1&id=%s",
		s.baseURL, url.QueryEscape(id))

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

	// Safebooru answers with a bare JSON array; an empty result set comes
	// back as a blank body on some mirrors.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if len(body) == 0 {
		return nil, nil
	}
	var posts []safebooruPost
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return posts, nil
}
