package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"saucery/internal/backoff"
	"saucery/internal/sites"
	"saucery/pkg/types"
)

const (
	// DefaultDanbooruURL is the public Danbooru endpoint.
	DefaultDanbooruURL = "https://danbooru.donmai.us"

	danbooruName    = "danbooru"
	danbooruTimeout = 15 * time.Second
)

// Danbooru resolves Danbooru post IDs to tag, artist, and character data.
// Posts that Danbooru has deleted or banned, and posts carrying tags on the
// suppression list, keep their textual metadata but lose every media URL.
type Danbooru struct {
	baseURL    string
	login      string
	apiKey     string
	enabled    bool
	httpClient *http.Client
	logger     *slog.Logger
	memo       *memo
}

// DanbooruOptions configures a Danbooru provider instance.
type DanbooruOptions struct {
	BaseURL string // defaults to DefaultDanbooruURL
	Login   string // optional account credentials raise the rate limit
	APIKey  string
	Enabled bool
	Logger  *slog.Logger
}

// NewDanbooru creates a Danbooru provider.
func NewDanbooru(opts DanbooruOptions) *Danbooru {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultDanbooruURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Danbooru{
		baseURL: baseURL,
		login:   opts.Login,
		apiKey:  opts.APIKey,
		enabled: opts.Enabled,
		httpClient: &http.Client{
			Timeout: danbooruTimeout,
		},
		logger: logger.With("provider", danbooruName),
		memo:   newMemo(),
	}
}

func (d *Danbooru) Name() string  { return danbooruName }
func (d *Danbooru) Priority() int { return 10 }
func (d *Danbooru) Enabled() bool { return d.enabled }

func (d *Danbooru) CanEnrich(hit types.SearchHit) bool {
	_, ok := extractID(hit, danbooruName)
	return ok
}

// suppressedTags lists tag values that force media suppression regardless of
// the post's moderation state.
var suppressedTags = map[string]bool{
	"loli":  true,
	"shota": true,
}

type danbooruPost struct {
	ID                 int64  `json:"id"`
	Source             string `json:"source"`
	FileURL            string `json:"file_url"`
	LargeFileURL       string `json:"large_file_url"`
	PreviewFileURL     string `json:"preview_file_url"`
	FileExt            string `json:"file_ext"`
	TagStringGeneral   string `json:"tag_string_general"`
	TagStringArtist    string `json:"tag_string_artist"`
	TagStringCharacter string `json:"tag_string_character"`
	IsDeleted          bool   `json:"is_deleted"`
	IsBanned           bool   `json:"is_banned"`
}

func (d *Danbooru) Enrich(ctx context.Context, hit types.SearchHit) (*types.Enrichment, error) {
	id, ok := extractID(hit, danbooruName)
	if !ok {
		return nil, nil
	}

	memoKey := danbooruName + ":" + id
	if cached, ok := d.memo.get(memoKey); ok {
		return cached, nil
	}

	post, err := backoff.Retry(ctx, backoff.DefaultConfig(), func() (*danbooruPost, error) {
		return d.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if post == nil {
		d.memo.add(memoKey, nil)
		return nil, nil
	}

	e := d.buildEnrichment(post, id)
	d.memo.add(memoKey, e)
	return e, nil
}

func (d *Danbooru) buildEnrichment(post *danbooruPost, id string) *types.Enrichment {
	tags := splitTags(post.TagStringGeneral)

	e := &types.Enrichment{
		Tags:       tags,
		Artists:    splitTags(post.TagStringArtist),
		Characters: splitTags(post.TagStringCharacter),
		Priority:   d.Priority(),
		Enrichers:  []string{danbooruName},
	}

	if s := sites.FromKey(danbooruName); s != nil {
		e.MainLink = &types.Link{URL: s.PostURL(id), Name: s.Name}
	}
	if post.Source != "" {
		e.Links = append(e.Links, types.Link{URL: post.Source, Name: "Source"})
	}

	if post.IsDeleted || post.IsBanned || hasSuppressedTag(tags) {
		d.logger.Debug("media suppressed", "post", post.ID,
			"deleted", post.IsDeleted, "banned", post.IsBanned)
		return e
	}

	media := post.FileURL
	if media == "" {
		media = post.LargeFileURL
	}
	if media == "" {
		media = post.PreviewFileURL
	}
	switch strings.ToLower(post.FileExt) {
	case "mp4", "webm", "gif":
		e.Video = media
	default:
		e.Thumbnail = media
	}
	return e
}

func hasSuppressedTag(tags []string) bool {
	for _, t := range tags {
		if suppressedTags[t] {
			return true
		}
	}
	return false
}

func (d *Danbooru) fetch(ctx context.Context, id string) (*danbooruPost, error) {
	endpoint := fmt.Sprintf("%s/posts/%s.json", d.baseURL, url.PathEscape(id))
	if d.login != "" && d.apiKey != "" {
		endpoint += fmt.Sprintf("?login=%s&api_key=%s",
			url.QueryEscape(d.login), url.QueryEscape(d.apiKey))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, body)
	}

	var post danbooruPost
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &post, nil
}

// splitTags splits a booru space-separated tag string.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
