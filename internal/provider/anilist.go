package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"saucery/internal/backoff"
	"saucery/internal/sites"
	"saucery/pkg/types"
)

const (
	// DefaultAniListURL is the public AniList GraphQL endpoint.
	DefaultAniListURL = "https://graphql.anilist.co"

	anilistName    = "anilist"
	anilistTimeout = 15 * time.Second
)

const anilistQuery = `query ($id: Int) {
  Media(id: $id, type: ANIME) {
    title { english romaji native }
    episodes
    seasonYear
    status
    siteUrl
    coverImage { extraLarge }
    tags { name }
    externalLinks { url site }
  }
}`

// AniList resolves trace.moe's AniList IDs to full anime records over the
// AniList GraphQL API.
type AniList struct {
	baseURL    string
	enabled    bool
	httpClient *http.Client
	logger     *slog.Logger
	memo       *memo
}

// AniListOptions configures an AniList provider instance.
type AniListOptions struct {
	BaseURL string // defaults to DefaultAniListURL
	Enabled bool
	Logger  *slog.Logger
}

// NewAniList creates an AniList provider.
func NewAniList(opts AniListOptions) *AniList {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultAniListURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AniList{
		baseURL: baseURL,
		enabled: opts.Enabled,
		httpClient: &http.Client{
			Timeout: anilistTimeout,
		},
		logger: logger.With("provider", anilistName),
		memo:   newMemo(),
	}
}

func (a *AniList) Name() string  { return anilistName }
func (a *AniList) Priority() int { return 10 }
func (a *AniList) Enabled() bool { return a.enabled }

func (a *AniList) CanEnrich(hit types.SearchHit) bool {
	_, ok := extractID(hit, anilistName)
	return ok
}

type anilistMedia struct {
	Title struct {
		English string `json:"english"`
		Romaji  string `json:"romaji"`
		Native  string `json:"native"`
	} `json:"title"`
	Episodes   int    `json:"episodes"`
	SeasonYear int    `json:"seasonYear"`
	Status     string `json:"status"`
	SiteURL    string `json:"siteUrl"`
	CoverImage struct {
		ExtraLarge string `json:"extraLarge"`
	} `json:"coverImage"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
	ExternalLinks []struct {
		URL  string `json:"url"`
		Site string `json:"site"`
	} `json:"externalLinks"`
}

type anilistResponse struct {
	Data struct {
		Media *anilistMedia `json:"Media"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"errors"`
}

func (a *AniList) Enrich(ctx context.Context, hit types.SearchHit) (*types.Enrichment, error) {
	rawID, ok := extractID(hit, anilistName)
	if !ok {
		return nil, nil
	}
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, nil
	}

	memoKey := anilistName + ":" + rawID
	if cached, ok := a.memo.get(memoKey); ok {
		return cached, nil
	}

	decoded, err := backoff.Retry(ctx, backoff.DefaultConfig(), func() (*anilistResponse, error) {
		return a.query(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if decoded.Data.Media == nil {
		// The API reports unknown IDs as a GraphQL 404, not a transport
		// error; that is a plain not-found for us.
		a.memo.add(memoKey, nil)
		return nil, nil
	}

	e := a.buildEnrichment(decoded.Data.Media)
	a.memo.add(memoKey, e)
	return e, nil
}

func (a *AniList) buildEnrichment(m *anilistMedia) *types.Enrichment {
	e := &types.Enrichment{
		Title: &types.Title{
			English: m.Title.English,
			Romaji:  m.Title.Romaji,
			Native:  m.Title.Native,
		},
		Year:      m.SeasonYear,
		Status:    anilistStatus(m.Status),
		Thumbnail: m.CoverImage.ExtraLarge,
		Priority:  a.Priority(),
		Enrichers: []string{anilistName},
	}
	if m.Episodes > 0 {
		e.Episodes = &types.Episodes{Total: m.Episodes}
	}
	for _, t := range m.Tags {
		e.Tags = append(e.Tags, t.Name)
	}
	if m.SiteURL != "" {
		name := anilistName
		if s := sites.FromKey(anilistName); s != nil {
			name = s.Name
		}
		e.MainLink = &types.Link{URL: m.SiteURL, Name: name}
	}
	for _, l := range m.ExternalLinks {
		e.Links = append(e.Links, types.Link{URL: l.URL, Name: l.Site})
	}
	return e
}

func anilistStatus(s string) types.Status {
	switch s {
	case "FINISHED":
		return types.StatusCompleted
	case "RELEASING":
		return types.StatusOngoing
	case "NOT_YET_RELEASED":
		return types.StatusAnnounced
	case "CANCELLED":
		return types.StatusCancelled
	case "HIATUS":
		return types.StatusOnHold
	default:
		return types.StatusUnknown
	}
}

func (a *AniList) query(ctx context.Context, id int) (*anilistResponse, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     anilistQuery,
		"variables": map[string]any{"id": id},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// GraphQL not-found comes back as 404 with an errors array; decode it
	// instead of failing on the status code.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, body)
	}

	var decoded anilistResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &decoded, nil
}
