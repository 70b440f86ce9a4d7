package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"meshview/internal/logging"
)

// DefaultMaxBytes caps how much of an archive body is read.
const DefaultMaxBytes = 256 << 20

// Source describes where a load request gets its archive from.
type Source struct {
	URL       string // origin locator
	ProxyPath string // optional asset path hint passed to the proxy
	Label     string // human-readable model label
}

// Fetcher retrieves raw archive bytes, optionally through a proxy endpoint.
type Fetcher struct {
	Client   *http.Client
	ProxyURL string // when set, requests go here with ?url=<origin>[&path=<hint>]
	MaxBytes int64
}

// NewFetcher creates a Fetcher with a timeout-bound client.
func NewFetcher(proxyURL string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		Client:   &http.Client{Timeout: timeout},
		ProxyURL: proxyURL,
		MaxBytes: DefaultMaxBytes,
	}
}

// RequestURL returns the URL actually requested for src.
func (f *Fetcher) RequestURL(src Source) (string, error) {
	if f.ProxyURL == "" {
		return src.URL, nil
	}
	u, err := url.Parse(f.ProxyURL)
	if err != nil {
		return "", fmt.Errorf("%w: proxy url %q: %v", ErrFetch, f.ProxyURL, err)
	}
	q := u.Query()
	q.Set("url", src.URL)
	if src.ProxyPath != "" {
		q.Set("path", src.ProxyPath)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch downloads the archive bytes for src.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	if src.URL == "" && src.ProxyPath == "" {
		return nil, fmt.Errorf("%w: empty source", ErrFetch)
	}
	target, err := f.RequestURL(src)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetch, err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	logging.Debug("fetching archive", "url", target)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{URL: target, StatusCode: resp.StatusCode}
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: archive exceeds %d bytes", ErrFetch, limit)
	}

	logging.Debug("fetched archive", "url", target, "bytes", len(body))
	return body, nil
}
