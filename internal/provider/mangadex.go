package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"saucery/internal/backoff"
	"saucery/internal/sites"
	"saucery/pkg/types"
)

const (
	// DefaultMangaDexURL is the public MangaDex API endpoint.
	DefaultMangaDexURL = "https://api.mangadex.org"

	mangadexName    = "mangadex"
	mangadexTimeout = 15 * time.Second
)

// MangaDex resolves MangaDex title and chapter IDs to manga records. Chapter
// hits are resolved to their parent title first, and the matched chapter
// number is folded into the record.
type MangaDex struct {
	baseURL    string
	enabled    bool
	httpClient *http.Client
	logger     *slog.Logger
	memo       *memo
}

// MangaDexOptions configures a MangaDex provider instance.
type MangaDexOptions struct {
	BaseURL string // defaults to DefaultMangaDexURL
	Enabled bool
	Logger  *slog.Logger
}

// NewMangaDex creates a MangaDex provider.
func NewMangaDex(opts MangaDexOptions) *MangaDex {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultMangaDexURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MangaDex{
		baseURL: baseURL,
		enabled: opts.Enabled,
		httpClient: &http.Client{
			Timeout: mangadexTimeout,
		},
		logger: logger.With("provider", mangadexName),
		memo:   newMemo(),
	}
}

func (m *MangaDex) Name() string  { return mangadexName }
func (m *MangaDex) Priority() int { return 10 }
func (m *MangaDex) Enabled() bool { return m.enabled }

func (m *MangaDex) CanEnrich(hit types.SearchHit) bool {
	if _, ok := extractID(hit, mangadexName); ok {
		return true
	}
	_, ok := hit.MetaString("mangadex-chapter")
	return ok
}

// mangadexLinkSites maps MangaDex's external-link keys to our service keys.
var mangadexLinkSites = map[string]string{
	"al":  "anilist",
	"mal": "myanimelist",
	"mu":  "mangaupdates",
}

type mangadexManga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title            map[string]string   `json:"title"`
		AltTitles        []map[string]string `json:"altTitles"`
		Links            map[string]string   `json:"links"`
		OriginalLanguage string              `json:"originalLanguage"`
		LastChapter      string              `json:"lastChapter"`
		Status           string              `json:"status"`
		Year             int                 `json:"year"`
		Tags             []struct {
			Attributes struct {
				Name map[string]string `json:"name"`
			} `json:"attributes"`
		} `json:"tags"`
	} `json:"attributes"`
}

type mangadexChapter struct {
	Attributes struct {
		Chapter string `json:"chapter"`
	} `json:"attributes"`
	Relationships []struct {
		Type       string          `json:"type"`
		ID         string          `json:"id"`
		Attributes json.RawMessage `json:"attributes"`
	} `json:"relationships"`
}

func (m *MangaDex) Enrich(ctx context.Context, hit types.SearchHit) (*types.Enrichment, error) {
	if chapterID, ok := hit.MetaString("mangadex-chapter"); ok {
		return m.enrichChapter(ctx, chapterID)
	}
	id, ok := extractID(hit, mangadexName)
	if !ok {
		return nil, nil
	}
	return m.enrichManga(ctx, id)
}

func (m *MangaDex) enrichManga(ctx context.Context, id string) (*types.Enrichment, error) {
	memoKey := mangadexName + ":" + id
	if cached, ok := m.memo.get(memoKey); ok {
		return cached, nil
	}

	manga, err := backoff.Retry(ctx, backoff.DefaultConfig(), func() (*mangadexManga, error) {
		return m.fetchManga(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if manga == nil {
		m.memo.add(memoKey, nil)
		return nil, nil
	}

	e := m.buildEnrichment(manga, 0)
	m.memo.add(memoKey, e)
	return e, nil
}

func (m *MangaDex) enrichChapter(ctx context.Context, chapterID string) (*types.Enrichment, error) {
	memoKey := mangadexName + ":chapter:" + chapterID
	if cached, ok := m.memo.get(memoKey); ok {
		return cached, nil
	}

	chapter, err := backoff.Retry(ctx, backoff.DefaultConfig(), func() (*mangadexChapter, error) {
		return m.fetchChapter(ctx, chapterID)
	})
	if err != nil {
		return nil, err
	}
	if chapter == nil {
		m.memo.add(memoKey, nil)
		return nil, nil
	}

	hitChapter, _ := strconv.Atoi(chapter.Attributes.Chapter)

	// The includes[]=manga reference expands the parent title inline, so no
	// second round trip is needed.
	for _, rel := range chapter.Relationships {
		if rel.Type != "manga" || len(rel.Attributes) == 0 {
			continue
		}
		manga := &mangadexManga{ID: rel.ID}
		if err := json.Unmarshal(rel.Attributes, &manga.Attributes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		e := m.buildEnrichment(manga, hitChapter)
		m.memo.add(memoKey, e)
		return e, nil
	}

	m.memo.add(memoKey, nil)
	return nil, nil
}

func (m *MangaDex) buildEnrichment(manga *mangadexManga, hitChapter int) *types.Enrichment {
	attr := manga.Attributes

	title := &types.Title{
		English: localizedTitle(attr.Title, attr.AltTitles, "en"),
		Romaji:  localizedTitle(attr.Title, attr.AltTitles, "ja-ro"),
		Native:  localizedTitle(attr.Title, attr.AltTitles, attr.OriginalLanguage),
	}

	e := &types.Enrichment{
		Title:     title,
		Year:      attr.Year,
		Status:    mangadexStatus(attr.Status),
		Priority:  m.Priority(),
		Enrichers: []string{mangadexName},
	}

	for _, t := range attr.Tags {
		if name := t.Attributes.Name["en"]; name != "" {
			e.Tags = append(e.Tags, name)
		}
	}

	total, _ := strconv.Atoi(attr.LastChapter)
	if total > 0 || hitChapter > 0 {
		e.Chapters = &types.Chapters{Total: total, Hit: hitChapter}
	}

	if s := sites.FromKey(mangadexName); s != nil {
		e.MainLink = &types.Link{URL: s.PostURL(manga.ID), Name: s.Name}
	}
	for key, value := range attr.Links {
		siteKey, ok := mangadexLinkSites[key]
		if !ok {
			if strings.HasPrefix(value, "http") {
				e.Links = append(e.Links, types.Link{URL: value})
			}
			continue
		}
		if s := sites.FromKey(siteKey); s != nil {
			e.Links = append(e.Links, types.Link{URL: s.PostURL(value), Name: s.Name})
		}
	}

	return e
}

func localizedTitle(title map[string]string, alts []map[string]string, lang string) string {
	if lang == "" {
		return ""
	}
	if t := title[lang]; t != "" {
		return t
	}
	for _, alt := range alts {
		if t := alt[lang]; t != "" {
			return t
		}
	}
	return ""
}

func mangadexStatus(s string) types.Status {
	switch s {
	case "completed":
		return types.StatusCompleted
	case "ongoing":
		return types.StatusOngoing
	case "cancelled":
		return types.StatusCancelled
	case "hiatus":
		return types.StatusOnHold
	default:
		return types.StatusUnknown
	}
}

func (m *MangaDex) fetchManga(ctx context.Context, id string) (*mangadexManga, error) {
	endpoint := fmt.Sprintf("%s/manga/%s", m.baseURL, url.PathEscape(id))

	var decoded struct {
		Result string         `json:"result"`
		Data   *mangadexManga `json:"data"`
	}
	if err := m.getJSON(ctx, endpoint, &decoded); err != nil {
		return nil, err
	}
	if decoded.Result != "ok" || decoded.Data == nil {
		return nil, nil
	}
	return decoded.Data, nil
}

func (m *MangaDex) fetchChapter(ctx context.Context, id string) (*mangadexChapter, error) {
	endpoint := fmt.Sprintf("%s/chapter/%s?includes[]=manga", m.baseURL, url.PathEscape(id))

	var decoded struct {
		Result string           `json:"result"`
		Data   *mangadexChapter `json:"data"`
	}
	if err := m.getJSON(ctx, endpoint, &decoded); err != nil {
		return nil, err
	}
	if decoded.Result != "ok" || decoded.Data == nil {
		return nil, nil
	}
	return decoded.Data, nil
}

func (m *MangaDex) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}
