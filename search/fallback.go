package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsmith/logger"
)

// DefaultFallbackEndpoint is the DuckDuckGo HTML results page.
const DefaultFallbackEndpoint = "https://html.duckduckgo.com/html/"

// resultSelectors are tried in order; the first one that yields a
// qualifying link decides the result set.
var resultSelectors = []string{
	"a.result__a",
	".result__title a",
	"a.result-link",
	"#links a[href]",
}

// redirectParams carry the real target inside search-engine redirect links.
var redirectParams = []string{"uddg", "u", "url", "q"}

// FallbackSearch scrapes a search engine's HTML results page. It is best
// effort: scraping problems yield fewer results, never an error.
type FallbackSearch struct {
	fetcher  PageFetcher
	endpoint string
	log      logger.Logger
}

// NewFallbackSearch creates the scraping strategy. An empty endpoint uses
// DuckDuckGo.
func NewFallbackSearch(fetcher PageFetcher, endpoint string, log logger.Logger) *FallbackSearch {
	if endpoint == "" {
		endpoint = DefaultFallbackEndpoint
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &FallbackSearch{fetcher: fetcher, endpoint: endpoint, log: log}
}

// Search fetches the results page for query and returns qualifying links in
// page order.
func (s *FallbackSearch) Search(ctx context.Context, query string, maxResults int, excludeHost string) ([]string, error) {
	if maxResults <= 0 {
		return []string{}, nil
	}

	searchURL, err := s.searchURL(query)
	if err != nil {
		s.log.Warn("fallback search URL invalid", logger.String("endpoint", s.endpoint), logger.Error(err))
		return []string{}, nil
	}

	page, err := s.fetcher.Page(ctx, searchURL)
	if err != nil {
		s.log.Warn("fallback search fetch failed", logger.String("query", query), logger.Error(err))
		return []string{}, nil
	}

	base, _ := url.Parse(page.URL)
	f := newFilter(excludeHost)

	for _, selector := range resultSelectors {
		results := s.collect(page.Doc, selector, base, f, maxResults)
		if len(results) > 0 {
			s.log.Info("search completed",
				logger.String("provider", "fallback"),
				logger.String("query", query),
				logger.String("selector", selector),
				logger.Int("accepted", len(results)),
			)
			return results, nil
		}
	}

	s.log.Warn("fallback search found no qualifying results", logger.String("query", query))
	return []string{}, nil
}

func (s *FallbackSearch) searchURL(query string) (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *FallbackSearch) collect(doc *goquery.Document, selector string, base *url.URL, f filter, maxResults int) []string {
	var results []string
	seen := make(map[string]bool)

	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		link, ok := f.accept(DecodeRedirect(href, base))
		if !ok || seen[link] {
			return true
		}
		seen[link] = true
		results = append(results, link)
		return len(results) < maxResults
	})

	return results
}

// DecodeRedirect unwraps redirect links such as
// //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2F and resolves
// relative hrefs against base. Anything else is returned resolved but
// otherwise unchanged.
func DecodeRedirect(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	} else if u.Scheme == "" && strings.HasPrefix(href, "//") {
		u.Scheme = "https"
	}

	query := u.Query()
	for _, param := range redirectParams {
		target := query.Get(param)
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			return target
		}
	}
	return u.String()
}
