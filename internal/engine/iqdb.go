package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"saucery/internal/backoff"
	"saucery/internal/sites"
	"saucery/pkg/types"
)

const (
	// DefaultIQDBURL is the public IQDB endpoint.
	DefaultIQDBURL = "https://iqdb.org"

	iqdbName    = "iqdb"
	iqdbTimeout = 45 * time.Second
)

var iqdbSimilarity = regexp.MustCompile(`(\d+)%\s+similarity`)

// IQDB searches the multi-booru IQDB index. The backend has no API, so the
// adapter scrapes the result page.
type IQDB struct {
	baseURL    string
	enabled    bool
	threshold  *float64
	limit      *int
	httpClient *http.Client
	logger     *slog.Logger
}

// IQDBOptions configures an IQDB engine instance.
type IQDBOptions struct {
	BaseURL   string // defaults to DefaultIQDBURL
	Enabled   bool
	Threshold *float64
	Limit     *int
	Logger    *slog.Logger
}

// NewIQDB creates an IQDB engine adapter.
func NewIQDB(opts IQDBOptions) *IQDB {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultIQDBURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IQDB{
		baseURL:   baseURL,
		enabled:   opts.Enabled,
		threshold: opts.Threshold,
		limit:     opts.Limit,
		httpClient: &http.Client{
			Timeout: iqdbTimeout,
		},
		logger: logger.With("engine", iqdbName),
	}
}

func (q *IQDB) Name() string { return iqdbName }

func (q *IQDB) Enabled() bool { return q.enabled }

func (q *IQDB) Threshold() (float64, bool) {
	if q.threshold == nil {
		return 0, false
	}
	return *q.threshold, true
}

func (q *IQDB) Limit() (int, bool) {
	if q.limit == nil {
		return 0, false
	}
	return *q.limit, true
}

func (q *IQDB) Search(ctx context.Context, imageURL string) ([]types.SearchHit, error) {
	endpoint := fmt.Sprintf("%s/?url=%s", q.baseURL, url.QueryEscape(imageURL))

	doc, err := backoff.Retry(ctx, backoff.DefaultConfig(), func() (*goquery.Document, error) {
		return q.fetch(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	var hits []types.SearchHit
	doc.Find("#pages > div").Each(func(_ int, sel *goquery.Selection) {
		// The first block echoes the submitted image.
		header := strings.TrimSpace(sel.Find("th").First().Text())
		if strings.EqualFold(header, "Your image") {
			return
		}

		href, ok := sel.Find("td.image a").First().Attr("href")
		if !ok {
			return
		}
		if strings.HasPrefix(href, "//") {
			href = "https:" + href
		}

		m := iqdbSimilarity.FindStringSubmatch(sel.Text())
		if m == nil {
			return
		}
		pct, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}

		metadata := map[string]any{"hit_url": href}
		if site, id, ok := sites.ParseURL(href); ok {
			metadata[site.Key] = id
		}

		thumbnail := ""
		if src, ok := sel.Find("td.image img").First().Attr("src"); ok {
			if strings.HasPrefix(src, "/") {
				src = q.baseURL + src
			}
			thumbnail = src
		}

		hits = append(hits, types.SearchHit{
			Engine:     iqdbName,
			Similarity: float64(pct) / 100,
			Thumbnail:  thumbnail,
			Metadata:   metadata,
		})
	})

	q.logger.Debug("search complete", "hits", len(hits))
	return hits, nil
}

func (q *IQDB) fetch(ctx context.Context, endpoint string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, body)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return doc, nil
}
