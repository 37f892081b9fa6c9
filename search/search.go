// Package search finds reference articles related to a source article.
// Two strategies share one Provider interface: a paid search API and a
// scraped HTML fallback that degrades to fewer results instead of failing.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pevans/newsmith/config"
	"github.com/pevans/newsmith/fetch"
	"github.com/pevans/newsmith/logger"
)

// ErrUnsupportedProvider is returned by New for an unknown provider name.
var ErrUnsupportedProvider = errors.New("unsupported search provider")

// Provider returns up to maxResults article URLs relevant to query, in
// relevance order. URLs on excludeHost are never returned.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int, excludeHost string) ([]string, error)
}

// PageFetcher is the part of *fetch.Fetcher the fallback strategy uses.
type PageFetcher interface {
	Page(ctx context.Context, rawURL string) (*fetch.Page, error)
}

var (
	_ Provider = (*PaidSearch)(nil)
	_ Provider = (*FallbackSearch)(nil)
)

// New returns the provider named by cfg.Provider.
func New(cfg config.SearchConfig, timeout time.Duration, fetcher PageFetcher, log logger.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.SearchProviderAPI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: search.api_key", config.ErrMissingCredential)
		}
		client := &http.Client{Timeout: timeout}
		return NewPaidSearch(cfg.APIKey, cfg.Endpoint, client, log), nil
	case config.SearchProviderFallback, "":
		return NewFallbackSearch(fetcher, cfg.Endpoint, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}
