package search

import (
	"net/url"
	"path"
	"strings"
)

// blockedLabels match any host label: news.google.com, m.youtube.com,
// uk.linkedin.com ...
var blockedLabels = map[string]bool{
	"google": true, "bing": true, "duckduckgo": true, "yahoo": true,
	"youtube": true, "vimeo": true, "tiktok": true,
	"facebook": true, "twitter": true, "instagram": true,
	"pinterest": true, "reddit": true, "linkedin": true,
}

// blockedHosts are short domains a label match would over-block.
var blockedHosts = []string{"x.com", "youtu.be", "t.co", "fb.com"}

var articleSegments = []string{"/blog/", "/article/", "/articles/", "/post/", "/posts/", "/news/"}

// minSlugWords is the number of hyphen-separated words a final path segment
// needs to pass as an article slug.
const minSlugWords = 3

// filter decides whether a search hit looks like an article worth citing.
type filter struct {
	excludeHost string
}

func newFilter(excludeHost string) filter {
	return filter{excludeHost: canonicalHost(excludeHost)}
}

// accept returns the cleaned URL and whether it qualifies.
func (f filter) accept(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	u.Fragment = ""

	host := canonicalHost(u.Hostname())
	if f.excludeHost != "" && (host == f.excludeHost || strings.HasSuffix(host, "."+f.excludeHost)) {
		return "", false
	}
	if IsBlockedHost(host) {
		return "", false
	}
	if !LooksLikeArticle(u.Path) {
		return "", false
	}
	return u.String(), true
}

// IsBlockedHost reports whether host belongs to a search engine, video
// platform or social network.
func IsBlockedHost(host string) bool {
	host = canonicalHost(host)
	for _, blocked := range blockedHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	for _, label := range strings.Split(host, ".") {
		if blockedLabels[label] {
			return true
		}
	}
	return false
}

// LooksLikeArticle applies the URL-shape heuristic: a known article path
// segment, or a final segment that reads like a multi-word slug.
func LooksLikeArticle(urlPath string) bool {
	lower := strings.ToLower(urlPath)
	if !strings.HasSuffix(lower, "/") {
		lower += "/"
	}
	for _, segment := range articleSegments {
		if i := strings.Index(lower, segment); i >= 0 && len(lower) > i+len(segment) {
			return true
		}
	}

	slug := path.Base(strings.TrimRight(urlPath, "/"))
	slug = strings.TrimSuffix(slug, path.Ext(slug))
	words := 0
	for _, part := range strings.Split(slug, "-") {
		if part != "" {
			words++
		}
	}
	return words >= minSlugWords
}

func canonicalHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
}
