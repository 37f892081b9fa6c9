// Package fetch retrieves HTML pages for the locator, the extractor and the
// fallback search strategy. Every request carries a timeout and waits on a
// shared token bucket so a job never hammers a third-party site.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsmith/config"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 8 << 20

// ErrStatus is wrapped by StatusError.
var ErrStatus = errors.New("unexpected HTTP status")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d fetching %s", e.StatusCode, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Page is a fetched and parsed HTML document.
type Page struct {
	// URL is the final URL after redirects.
	URL  string
	HTML string
	Doc  *goquery.Document
}

// Fetcher performs rate-limited GET requests.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New creates a fetcher from the fetch configuration.
func New(cfg config.FetchConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	r := rate.Limit(cfg.Rate)
	if cfg.Rate <= 0 {
		r = rate.Inf
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}

	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(r, 1),
		userAgent: ua,
	}
}

// Get fetches rawURL and returns the response body. Non-2xx responses
// return a *StatusError.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (string, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", "", fmt.Errorf("failed to read body: %w", err)
	}

	return string(body), resp.Request.URL.String(), nil
}

// Page fetches rawURL and parses it with goquery.
func (f *Fetcher) Page(ctx context.Context, rawURL string) (*Page, error) {
	body, finalURL, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &Page{URL: finalURL, HTML: body, Doc: doc}, nil
}
