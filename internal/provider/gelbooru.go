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
	// DefaultGelbooruURL is the public Gelbooru endpoint.
	DefaultGelbooruURL = "https://gelbooru.com"

	gelbooruName    = "gelbooru"
	gelbooruTimeout = 15 * time.Second
)

// Gelbooru resolves Gelbooru post IDs via the dapi JSON endpoint. Posts
// rated explicit keep their tags but lose their media URL.
type Gelbooru struct {
	baseURL    string
	enabled    bool
	httpClient *http.Client
	logger     *slog.Logger
	memo       *memo
}

// GelbooruOptions configures a Gelbooru provider instance.
type GelbooruOptions struct {
	BaseURL string // defaults to DefaultGelbooruURL
	Enabled bool
	Logger  *slog.Logger
}

// NewGelbooru creates a Gelbooru provider.
func NewGelbooru(opts GelbooruOptions) *Gelbooru {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultGelbooruURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gelbooru{
		baseURL: baseURL,
		enabled: opts.Enabled,
		httpClient: &http.Client{
			Timeout: gelbooruTimeout,
		},
		logger: logger.With("provider", gelbooruName),
		memo:   newMemo(),
	}
}

func (g *Gelbooru) Name() string  { return gelbooruName }
func (g *Gelbooru) Priority() int { return 5 }
func (g *Gelbooru) Enabled() bool { return g.enabled }

func (g *Gelbooru) CanEnrich(hit types.SearchHit) bool {
	_, ok := extractID(hit, gelbooruName)
	return ok
}

type gelbooruPost struct {
	ID      int64  `json:"id"`
	FileURL string `json:"file_url"`
	Tags    string `json:"tags"`
	Source  string `json:"source"`
	Rating  string `json:"rating"`
}

type gelbooruResponse struct {
	Post []gelbooruPost `json:"post"`
}

func (g *Gelbooru) Enrich(ctx context.Context, hit types.SearchHit) (*types.Enrichment, error) {
	id, ok := extractID(hit, gelbooruName)
	if !ok {
		return nil, nil
	}

	memoKey := gelbooruName + ":" + id
	if cached, ok := g.memo.get(memoKey); ok {
		return cached, nil
	}

	decoded, err := backoff.Retry(ctx, backoff.DefaultConfig(), func() (*gelbooruResponse, error) {
		return g.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if len(decoded.Post) == 0 {
		g.memo.add(memoKey, nil)
		return nil, nil
	}
	post := decoded.Post[0]

	e := &types.Enrichment{
		Tags:      splitTags(post.Tags),
		Priority:  g.Priority(),
		Enrichers: []string{gelbooruName},
	}
	if s := sites.FromKey(gelbooruName); s != nil {
		e.MainLink = &types.Link{URL: s.PostURL(id), Name: s.Name}
	}
	if post.Source != "" {
		e.Links = append(e.Links, types.Link{URL: post.Source, Name: "Source"})
	}
	if post.Rating == "explicit" {
		g.logger.Debug("media suppressed", "post", post.ID, "rating", post.Rating)
	} else {
		e.Thumbnail = post.FileURL
	}

	g.memo.add(memoKey, e)
	return e, nil
}

func (g *Gelbooru) fetch(ctx context.Context, id string) (*gelbooruResponse, error) {
	endpoint := fmt.Sprintf("%s/index.php?page=dapi&s=post&q=index&json=1&id=%s",
		g.baseURL, url.QueryEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, body)
	}

	var decoded gelbooruResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &decoded, nil
}
