// Package scraper holds the selector cascades used to read listing pages
// and article pages. Each list is ordered most specific first; callers try
// the selectors in order and stop at the first acceptable result.
package scraper

// ListConfig defines how to find pagination and article links on a listing
// page.
type ListConfig struct {
	PaginationSelectors []string `json:"pagination_selectors" yaml:"pagination_selectors"`
	LinkSelectors       []string `json:"link_selectors" yaml:"link_selectors"`
	// ExcludeSegments are path segments that mark a link as navigation
	// rather than an article (category, tag, author ...).
	ExcludeSegments []string `json:"exclude_segments" yaml:"exclude_segments"`
}

// ArticleConfig defines how to extract title, body and date from an
// article page.
type ArticleConfig struct {
	TitleSelectors []string `json:"title_selectors" yaml:"title_selectors"`
	BodySelectors  []string `json:"body_selectors" yaml:"body_selectors"`
	// StripSelectors are removed from a body candidate before it is
	// measured.
	StripSelectors []string `json:"strip_selectors" yaml:"strip_selectors"`
	DateSelectors  []string `json:"date_selectors" yaml:"date_selectors"`
	MinTitleLength int      `json:"min_title_length" yaml:"min_title_length"`
	MinBodyLength  int      `json:"min_body_length" yaml:"min_body_length"`
}

// DefaultListConfig returns the cascade used for WordPress-style and
// generic blog listings.
func DefaultListConfig() ListConfig {
	return ListConfig{
		PaginationSelectors: []string{
			".page-numbers",
			".pagination a",
			".nav-links a",
			".wp-pagenavi a",
			"a.page-link",
			"a[href*='/page/']",
			"a[href*='?page=']",
			"a[href*='paged=']",
		},
		LinkSelectors: []string{
			"article h2.entry-title a",
			"article h2 a",
			"article h3 a",
			".entry-title a",
			".post-title a",
			"h2.title a",
			"article a[rel='bookmark']",
			"a[href]",
		},
		ExcludeSegments: []string{
			"page", "category", "categories", "tag", "tags",
			"author", "feed", "wp-login.php", "login", "search",
		},
	}
}

// DefaultArticleConfig returns the cascade used for article pages.
func DefaultArticleConfig() ArticleConfig {
	return ArticleConfig{
		TitleSelectors: []string{
			"article h1",
			"h1.entry-title",
			"h1.post-title",
			".entry-title",
			".post-title",
			"h1",
		},
		BodySelectors: []string{
			".entry-content",
			".post-content",
			".article-content",
			".article-body",
			".post-body",
			"[itemprop='articleBody']",
			"article",
			"main",
			"[role='main']",
			"#content",
			".content",
		},
		StripSelectors: []string{
			"script", "style", "noscript", "iframe", "form",
			"nav", "footer", "header", "aside",
			".sharedaddy", ".share", ".social", ".related", ".related-posts",
			".comments", "#comments", ".advertisement", ".ad", ".ads",
			"[class*='adsbygoogle']", ".newsletter", ".breadcrumb", ".breadcrumbs",
		},
		DateSelectors: []string{
			"meta[property='article:published_time']",
			"meta[name='date']",
			"meta[itemprop='datePublished']",
			"time[datetime]",
		},
		MinTitleLength: 10,
		MinBodyLength:  150,
	}
}
