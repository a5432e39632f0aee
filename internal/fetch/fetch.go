// Package fetch downloads images for hashing, with a hard size cap so a
// hostile URL cannot exhaust memory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTooLarge is returned when the remote image exceeds the configured cap.
var ErrTooLarge = errors.New("image exceeds size limit")

const fetchTimeout = 30 * time.Second

// Fetcher downloads images over HTTP.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// New creates a fetcher capping downloads at maxBytes.
func New(maxBytes int64) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
		maxBytes: maxBytes,
	}
}

// Image downloads the image at url. The advertised Content-Length is checked
// first, and the body read is capped regardless, so a lying server cannot
// push past the limit either.
func (f *Fetcher) Image(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes advertised", ErrTooLarge, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	return body, nil
}
