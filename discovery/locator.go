// Package discovery finds candidate source article URLs on a listing. The
// paginated locator walks from the last listing page back to the first so a
// batch is filled with the oldest unseen articles.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/newsmith/config"
	"github.com/pevans/newsmith/fetch"
	"github.com/pevans/newsmith/logger"
	"github.com/pevans/newsmith/scraper"
)

// ErrNoArticles is returned when no listing page yielded a link.
var ErrNoArticles = errors.New("no article links found in listing")

// maxPageIndex bounds page numbers read from markup; anything larger is
// almost always a year, an ID or a price.
const maxPageIndex = 1000

var (
	pageInHref = regexp.MustCompile(`(?:/page/|[?&]paged?=)(\d+)`)
	pageInText = regexp.MustCompile(`^\d{1,4}$`)
)

// Locator returns up to batchSize article URLs from a listing, oldest first.
type Locator interface {
	LocateBatch(ctx context.Context, listingURL string, batchSize int) ([]string, error)
}

// Fetcher is the part of *fetch.Fetcher the locators use.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (string, string, error)
	Page(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// NewLocator returns the locator for the configured listing mode.
func NewLocator(cfg config.ListingConfig, fetcher Fetcher, log logger.Logger) Locator {
	if cfg.Mode == config.ListingModeFeed {
		return NewFeedLocator(fetcher, log)
	}
	return NewPageLocator(fetcher, cfg, scraper.DefaultListConfig(), log)
}

// pageRule estimates the last page index of a listing; 0 means no match.
type pageRule func(doc *goquery.Document) int

// linkRule returns candidate article hrefs in document order.
type linkRule struct {
	selector string
	// generic rules only accept links under the listing's own path.
	generic bool
}

// PageLocator walks a paginated HTML listing.
type PageLocator struct {
	fetcher      Fetcher
	list         scraper.ListConfig
	pageRules    []pageRule
	linkRules    []linkRule
	pageTemplate string
	takeFromEnd  bool
	log          logger.Logger
}

// NewPageLocator builds a locator from listing settings and a selector
// cascade.
func NewPageLocator(fetcher Fetcher, cfg config.ListingConfig, list scraper.ListConfig, log logger.Logger) *PageLocator {
	if log == nil {
		log = logger.NewNop()
	}

	l := &PageLocator{
		fetcher:      fetcher,
		list:         list,
		pageTemplate: cfg.PageTemplate,
		takeFromEnd:  cfg.Take != config.TakeFromStart,
		log:          log,
	}
	if l.pageTemplate == "" {
		l.pageTemplate = "{root}/page/{n}/"
	}

	for _, sel := range list.PaginationSelectors {
		l.pageRules = append(l.pageRules, paginationRule(sel))
	}
	for _, sel := range list.LinkSelectors {
		l.linkRules = append(l.linkRules, linkRule{selector: sel, generic: sel == "a[href]"})
	}

	return l
}

// LocateBatch collects up to batchSize unique article URLs, walking pages
// from the highest index down to 1. A page that fails to load contributes
// nothing; only a listing that yields nothing at all is an error.
func (l *PageLocator) LocateBatch(ctx context.Context, listingURL string, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		return []string{}, nil
	}

	root, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL: %w", err)
	}

	rootPage, err := l.fetcher.Page(ctx, listingURL)
	if err != nil {
		l.log.Warn("listing root fetch failed", logger.String("url", listingURL), logger.Error(err))
		return []string{}, fmt.Errorf("%w: %v", ErrNoArticles, err)
	}

	lastPage := l.EstimateLastPage(rootPage.Doc, rootPage.HTML)
	l.log.Info("listing pagination resolved",
		logger.String("url", listingURL),
		logger.Int("last_page", lastPage),
	)

	collected := make([]string, 0, batchSize)
	seen := make(map[string]bool)

	for n := lastPage; n >= 1 && len(collected) < batchSize; n-- {
		if err := ctx.Err(); err != nil {
			return collected, err
		}

		page := rootPage
		if n > 1 {
			pageURL := l.PageURL(listingURL, n)
			page, err = l.fetcher.Page(ctx, pageURL)
			if err != nil {
				l.log.Warn("listing page fetch failed",
					logger.String("url", pageURL),
					logger.Int("page", n),
					logger.Error(err),
				)
				continue
			}
		}

		links := l.ExtractLinks(page.Doc, root)
		fresh := make([]string, 0, len(links))
		for _, link := range links {
			if !seen[link] {
				fresh = append(fresh, link)
			}
		}

		taken := l.take(fresh, batchSize-len(collected))
		for _, link := range taken {
			seen[link] = true
			collected = append(collected, link)
		}

		l.log.Debug("listing page scanned",
			logger.Int("page", n),
			logger.Int("links", len(links)),
			logger.Int("taken", len(taken)),
		)
	}

	if len(collected) == 0 {
		return collected, ErrNoArticles
	}
	return collected, nil
}

// take returns `needed` links from the end (or start) of a page, kept in
// listing order.
func (l *PageLocator) take(links []string, needed int) []string {
	if needed >= len(links) {
		return links
	}
	if l.takeFromEnd {
		return links[len(links)-needed:]
	}
	return links[:needed]
}

// PageURL returns the URL of listing page n. Page 1 is the listing itself.
func (l *PageLocator) PageURL(listingURL string, n int) string {
	if n <= 1 {
		return listingURL
	}
	out := strings.ReplaceAll(l.pageTemplate, "{root}", strings.TrimRight(listingURL, "/"))
	return strings.ReplaceAll(out, "{n}", strconv.Itoa(n))
}

// EstimateLastPage returns the highest page index advertised by a listing
// page. The first pagination selector that matches decides; if none does,
// the raw markup is scanned for page links. The result is never below 1.
func (l *PageLocator) EstimateLastPage(doc *goquery.Document, rawHTML string) int {
	for _, rule := range l.pageRules {
		if n := rule(doc); n > 0 {
			return n
		}
	}
	if n := scanPageNumbers(rawHTML); n > 0 {
		return n
	}
	return 1
}

func paginationRule(selector string) pageRule {
	return func(doc *goquery.Document) int {
		highest := 0
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := strings.ReplaceAll(strings.TrimSpace(s.Text()), ",", "")
			if pageInText.MatchString(text) {
				if n, err := strconv.Atoi(text); err == nil && n <= maxPageIndex && n > highest {
					highest = n
				}
			}
			if href, ok := s.Attr("href"); ok {
				if n := scanPageNumbers(href); n > highest {
					highest = n
				}
			}
		})
		return highest
	}
}

// scanPageNumbers returns the largest page number found in /page/N,
// ?page=N or ?paged=N patterns, or 0.
func scanPageNumbers(text string) int {
	highest := 0
	for _, m := range pageInHref.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil && n <= maxPageIndex && n > highest {
			highest = n
		}
	}
	return highest
}

// ExtractLinks returns the article links of one listing page in document
// order, using the first link rule that yields anything acceptable.
func (l *PageLocator) ExtractLinks(doc *goquery.Document, root *url.URL) []string {
	for _, rule := range l.linkRules {
		links := l.applyLinkRule(doc, root, rule)
		if len(links) > 0 {
			return links
		}
	}
	return nil
}

func (l *PageLocator) applyLinkRule(doc *goquery.Document, root *url.URL, rule linkRule) []string {
	var links []string
	seen := make(map[string]bool)

	doc.Find(rule.selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link, ok := l.acceptLink(root, href, rule.generic)
		if !ok || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links
}

// acceptLink resolves href against the listing URL and reports whether it
// looks like an article on the same site.
func (l *PageLocator) acceptLink(root *url.URL, href string, generic bool) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "tel:") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := root.ResolveReference(ref)
	u.Fragment = ""

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if !strings.EqualFold(u.Hostname(), root.Hostname()) {
		return "", false
	}

	q := u.Query()
	if q.Has("page") || q.Has("paged") || q.Has("cat") || q.Has("tag") || q.Has("s") {
		return "", false
	}

	cleanPath := strings.TrimRight(u.Path, "/")
	rootPath := strings.TrimRight(root.Path, "/")
	if cleanPath == "" || cleanPath == rootPath {
		return "", false
	}
	if generic && rootPath != "" && !strings.HasPrefix(cleanPath, rootPath+"/") {
		return "", false
	}

	for _, segment := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		for _, excluded := range l.list.ExcludeSegments {
			if strings.EqualFold(segment, excluded) {
				return "", false
			}
		}
	}

	switch strings.ToLower(path.Ext(cleanPath)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".pdf", ".zip", ".xml", ".mp3", ".mp4":
		return "", false
	}

	return u.String(), true
}
