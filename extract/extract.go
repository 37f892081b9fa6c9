// Package extract pulls a title, clean body text and an optional publish
// date out of arbitrary article HTML. Extraction runs ordered selector
// cascades and falls back to the whole page body and then to a readability
// pass. Short or missing content is an expected outcome, reported as
// ErrInsufficientContent.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/pevans/newsmith/fetch"
	"github.com/pevans/newsmith/logger"
	"github.com/pevans/newsmith/scraper"
)

// Extraction outcomes. Both are frequent with third-party HTML and callers
// treat them as a skip, not a job failure.
var (
	ErrFetch               = errors.New("article fetch failed")
	ErrInsufficientContent = errors.New("insufficient article content")
)

// Result is a successful extraction. Title and Body are always non-empty
// and Body always clears the configured minimum length.
type Result struct {
	URL         string
	Title       string
	Body        string
	PublishedAt *time.Time
}

// PageFetcher is the part of *fetch.Fetcher the extractor uses.
type PageFetcher interface {
	Page(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// titleRule returns a title candidate or "".
type titleRule func(doc *goquery.Document) string

// bodyRule returns normalized body text or "".
type bodyRule func(doc *goquery.Document) string

// Extractor runs the title and body cascades.
type Extractor struct {
	fetcher    PageFetcher
	cfg        scraper.ArticleConfig
	titleRules []titleRule
	bodyRules  []bodyRule
	log        logger.Logger
}

// New creates an extractor for the given cascade.
func New(fetcher PageFetcher, cfg scraper.ArticleConfig, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.MinBodyLength <= 0 {
		cfg.MinBodyLength = scraper.DefaultArticleConfig().MinBodyLength
	}

	e := &Extractor{fetcher: fetcher, cfg: cfg, log: log}

	for _, sel := range cfg.TitleSelectors {
		e.titleRules = append(e.titleRules, selectorTitle(sel))
	}
	e.titleRules = append(e.titleRules, metaTitle, documentTitle)

	for _, sel := range cfg.BodySelectors {
		e.bodyRules = append(e.bodyRules, e.selectorBody(sel))
	}

	return e
}

// Extract fetches rawURL and extracts it.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Result, error) {
	page, err := e.fetcher.Page(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	result, err := e.ExtractDocument(page.Doc, page.HTML, page.URL)
	if err != nil {
		return nil, err
	}
	result.URL = rawURL
	return result, nil
}

// ExtractDocument extracts an already parsed page.
func (e *Extractor) ExtractDocument(doc *goquery.Document, rawHTML, pageURL string) (*Result, error) {
	title := e.extractTitle(doc)
	body, source := e.extractBody(doc)

	if utf8.RuneCountInString(body) < e.cfg.MinBodyLength || title == "" {
		rTitle, rBody := readabilityFallback(rawHTML, pageURL)
		if utf8.RuneCountInString(body) < e.cfg.MinBodyLength && utf8.RuneCountInString(rBody) >= e.cfg.MinBodyLength {
			body, source = rBody, "readability"
		}
		if title == "" {
			title = rTitle
		}
	}

	if title == "" {
		return nil, fmt.Errorf("%w: no title", ErrInsufficientContent)
	}
	if n := utf8.RuneCountInString(body); n < e.cfg.MinBodyLength {
		return nil, fmt.Errorf("%w: body has %d characters, need %d", ErrInsufficientContent, n, e.cfg.MinBodyLength)
	}

	e.log.Debug("article extracted",
		logger.String("url", pageURL),
		logger.String("body_source", source),
		logger.Int("body_length", utf8.RuneCountInString(body)),
	)

	return &Result{
		URL:         pageURL,
		Title:       title,
		Body:        body,
		PublishedAt: e.extractDate(doc),
	}, nil
}

// extractTitle returns the first candidate longer than the minimum title
// length, or else the first non-empty candidate in cascade order.
func (e *Extractor) extractTitle(doc *goquery.Document) string {
	fallback := ""
	for _, rule := range e.titleRules {
		candidate := rule(doc)
		if candidate == "" {
			continue
		}
		if utf8.RuneCountInString(candidate) > e.cfg.MinTitleLength {
			return candidate
		}
		if fallback == "" {
			fallback = candidate
		}
	}
	return fallback
}

func selectorTitle(selector string) titleRule {
	return func(doc *goquery.Document) string {
		return collapseSpaces(doc.Find(selector).First().Text())
	}
}

func metaTitle(doc *goquery.Document) string {
	content, _ := doc.Find("meta[property='og:title']").First().Attr("content")
	return collapseSpaces(content)
}

func documentTitle(doc *goquery.Document) string {
	return StripSiteSuffix(collapseSpaces(doc.Find("title").First().Text()))
}

var titleSeparators = []string{" - ", " | ", " – ", " — ", " :: ", " · "}

// StripSiteSuffix removes a trailing " - Site Name" style suffix from a
// <title> value.
func StripSiteSuffix(title string) string {
	cut := -1
	for _, sep := range titleSeparators {
		if i := strings.LastIndex(title, sep); i > cut {
			cut = i
		}
	}
	if cut <= 0 {
		return title
	}
	return strings.TrimSpace(title[:cut])
}

// extractBody returns the first body candidate that clears the minimum
// length, then the stripped page body. The second value names the source.
func (e *Extractor) extractBody(doc *goquery.Document) (string, string) {
	for i, rule := range e.bodyRules {
		if text := rule(doc); utf8.RuneCountInString(text) >= e.cfg.MinBodyLength {
			return text, e.cfg.BodySelectors[i]
		}
	}
	return e.cleanText(doc.Find("body").First()), "body"
}

// selectorBody measures every match of selector and keeps the longest.
func (e *Extractor) selectorBody(selector string) bodyRule {
	return func(doc *goquery.Document) string {
		best := ""
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := e.cleanText(s); utf8.RuneCountInString(text) > utf8.RuneCountInString(best) {
				best = text
			}
		})
		return best
	}
}

// cleanText copies the subtree, drops chrome and ads, and returns
// normalized text with paragraph breaks kept.
func (e *Extractor) cleanText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	clone := s.Clone()
	for _, sel := range e.cfg.StripSelectors {
		clone.Find(sel).Remove()
	}

	var b strings.Builder
	writeText(&b, clone)
	return Normalize(b.String())
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "pre": true,
	"table": true, "tr": true, "figure": true, "figcaption": true, "dl": true,
	"dt": true, "dd": true, "hr": true,
}

// writeText appends the text of s, surrounding block elements with blank
// lines so paragraphs survive.
func writeText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			b.WriteString(c.Text())
		case name == "br":
			b.WriteString("\n")
		case blockElements[name]:
			b.WriteString("\n\n")
			writeText(b, c)
			b.WriteString("\n\n")
		case strings.HasPrefix(name, "#"):
			// comments, doctype
		default:
			writeText(b, c)
		}
	})
}

func readabilityFallback(rawHTML, pageURL string) (string, string) {
	rawHTML = strings.TrimSpace(rawHTML)
	if rawHTML == "" {
		return "", ""
	}
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", ""
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return "", ""
	}

	return collapseSpaces(article.Title), Normalize(article.TextContent)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
}

// extractDate returns the first parseable, plausible publish date.
func (e *Extractor) extractDate(doc *goquery.Document) *time.Time {
	for _, sel := range e.cfg.DateSelectors {
		var found *time.Time
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			value, ok := s.Attr("content")
			if !ok {
				value, ok = s.Attr("datetime")
			}
			if !ok {
				value = s.Text()
			}
			if t, ok := ParseDate(value); ok {
				found = &t
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// ParseDate parses a publish date in one of the common layouts. Dates
// before 1990 or in the future are rejected.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	minDate := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.Before(minDate) || t.After(time.Now()) {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
