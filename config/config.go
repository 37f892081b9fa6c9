package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pevans/newsmith/logger"
)

// Listing modes.
const (
	ListingModePages = "pages"
	ListingModeFeed  = "feed"
)

// Link-take policies for listing pages.
const (
	TakeFromEnd   = "end"
	TakeFromStart = "start"
)

// Search providers.
const (
	SearchProviderAPI      = "api"
	SearchProviderFallback = "fallback"
)

// Generation backends.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendLocal     = "local"
)

// Validation errors.
var (
	ErrMissingListingURL = errors.New("listing.url is required")
	ErrMissingCredential = errors.New("missing credential")
	ErrUnknownBackend    = errors.New("generation.backend must be openai, anthropic, or local")
	ErrUnknownProvider   = errors.New("search.provider must be api or fallback")
)

// Config is the full newsmith configuration.
type Config struct {
	Listing        ListingConfig    `yaml:"listing"`
	BatchSize      int              `yaml:"batch_size"`
	ReferenceCount int              `yaml:"reference_count"`
	RetryLimit     int              `yaml:"retry_limit"`
	RetryBaseDelay time.Duration    `yaml:"retry_base_delay"`
	Fetch          FetchConfig      `yaml:"fetch"`
	Extract        ExtractConfig    `yaml:"extract"`
	Search         SearchConfig     `yaml:"search"`
	Generation     GenerationConfig `yaml:"generation"`
	Store          StoreConfig      `yaml:"store"`
	Log            logger.Config    `yaml:"log"`
}

// ListingConfig describes the source listing that acquisition walks.
type ListingConfig struct {
	URL string `yaml:"url"`
	// Mode is "pages" (paginated HTML listing) or "feed" (RSS/Atom).
	Mode string `yaml:"mode"`
	// PageTemplate builds the URL of page n; {root} and {n} are replaced.
	PageTemplate string `yaml:"page_template"`
	// Take selects which end of a listing page holds the oldest links.
	Take string `yaml:"take"`
}

// FetchConfig controls outbound page fetches.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Rate      float64       `yaml:"rate"` // requests per second
	UserAgent string        `yaml:"user_agent"`
}

// ExtractConfig holds extraction thresholds.
type ExtractConfig struct {
	MinBodyLength  int `yaml:"min_body_length"`
	MinTitleLength int `yaml:"min_title_length"`
}

// SearchConfig selects the reference search strategy.
type SearchConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

// GenerationConfig selects the generation backend.
type GenerationConfig struct {
	Backend     string        `yaml:"backend"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
}

// StoreConfig points at the article store API.
type StoreConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultUserAgent is a browser-like UA; several listing themes and the
// fallback search endpoint serve stripped pages to obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Listing: ListingConfig{
			Mode:         ListingModePages,
			PageTemplate: "{root}/page/{n}/",
			Take:         TakeFromEnd,
		},
		BatchSize:      5,
		ReferenceCount: 2,
		RetryLimit:     3,
		RetryBaseDelay: 2 * time.Second,
		Fetch: FetchConfig{
			Timeout:   20 * time.Second,
			Rate:      1,
			UserAgent: DefaultUserAgent,
		},
		Extract: ExtractConfig{
			MinBodyLength:  150,
			MinTitleLength: 10,
		},
		Search: SearchConfig{
			Provider: SearchProviderFallback,
		},
		Generation: GenerationConfig{
			Backend:     BackendLocal,
			Timeout:     120 * time.Second,
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Store: StoreConfig{
			URL:     "http://localhost:8080",
			Timeout: 20 * time.Second,
		},
		Log: logger.Config{Level: "info"},
	}
}

// Validate checks settings shared by every job.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.ReferenceCount <= 0 {
		return fmt.Errorf("reference_count must be positive, got %d", c.ReferenceCount)
	}
	if c.RetryLimit <= 0 {
		return fmt.Errorf("retry_limit must be positive, got %d", c.RetryLimit)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.Rate <= 0 {
		return fmt.Errorf("fetch.rate must be positive")
	}
	if c.Listing.Take != TakeFromEnd && c.Listing.Take != TakeFromStart {
		return fmt.Errorf("listing.take must be %q or %q", TakeFromEnd, TakeFromStart)
	}
	if c.Listing.Mode != ListingModePages && c.Listing.Mode != ListingModeFeed {
		return fmt.Errorf("listing.mode must be %q or %q", ListingModePages, ListingModeFeed)
	}
	if _, err := parseHTTPURL(c.Store.URL); err != nil {
		return fmt.Errorf("store.url: %w", err)
	}
	return nil
}

// ValidateAcquire checks settings the acquisition job needs.
func (c *Config) ValidateAcquire() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Listing.URL) == "" {
		return ErrMissingListingURL
	}
	if _, err := parseHTTPURL(c.Listing.URL); err != nil {
		return fmt.Errorf("listing.url: %w", err)
	}
	return nil
}

// ValidateRewrite checks settings the rewrite job needs. A misconfigured
// backend or search provider must stop the process before any work starts.
func (c *Config) ValidateRewrite() error {
	if err := c.Validate(); err != nil {
		return err
	}

	switch c.Search.Provider {
	case SearchProviderAPI:
		if c.Search.APIKey == "" {
			return fmt.Errorf("%w: search.api_key (SERPER_API_KEY)", ErrMissingCredential)
		}
	case SearchProviderFallback:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownProvider, c.Search.Provider)
	}

	switch c.Generation.Backend {
	case BackendOpenAI:
		if c.Generation.APIKey == "" {
			return fmt.Errorf("%w: generation.api_key (OPENAI_API_KEY)", ErrMissingCredential)
		}
	case BackendAnthropic:
		if c.Generation.APIKey == "" {
			return fmt.Errorf("%w: generation.api_key (ANTHROPIC_API_KEY)", ErrMissingCredential)
		}
	case BackendLocal:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownBackend, c.Generation.Backend)
	}

	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive")
	}
	return nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("must use http or https scheme")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}
