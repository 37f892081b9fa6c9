package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath returns ~/.newsmith/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".newsmith", "config.yaml"), nil
}

// Load builds a configuration from defaults, the YAML file at path (or the
// default path when empty), environment overrides and then overrides (usually
// command-line flags), in that order. The backend credential is resolved last
// so it always matches the final backend. A missing file is not an error.
// The result is not validated.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file -- defaults plus environment.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	fileBackend := cfg.Generation.Backend

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}

	// A key from the file belongs to the file's backend.
	if cfg.Generation.Backend != fileBackend {
		cfg.Generation.APIKey = ""
	}
	cfg.ResolveCredentials(os.Getenv)

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. getenv is usually
// os.Getenv; tests pass a map lookup.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	setDuration := func(key string, dst *time.Duration) error {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}

	setString("NEWSMITH_LISTING_URL", &c.Listing.URL)
	setString("NEWSMITH_LISTING_MODE", &c.Listing.Mode)
	setString("NEWSMITH_PAGE_TEMPLATE", &c.Listing.PageTemplate)
	setString("NEWSMITH_LISTING_TAKE", &c.Listing.Take)
	setString("NEWSMITH_USER_AGENT", &c.Fetch.UserAgent)
	setString("NEWSMITH_SEARCH_PROVIDER", &c.Search.Provider)
	setString("SERPER_API_KEY", &c.Search.APIKey)
	setString("NEWSMITH_SEARCH_ENDPOINT", &c.Search.Endpoint)
	setString("NEWSMITH_BACKEND", &c.Generation.Backend)
	setString("NEWSMITH_MODEL", &c.Generation.Model)
	setString("NEWSMITH_BACKEND_URL", &c.Generation.BaseURL)
	setString("NEWSMITH_STORE_URL", &c.Store.URL)
	setString("NEWSMITH_LOG_LEVEL", &c.Log.Level)

	for key, dst := range map[string]*int{
		"NEWSMITH_BATCH_SIZE":      &c.BatchSize,
		"NEWSMITH_REFERENCE_COUNT": &c.ReferenceCount,
		"NEWSMITH_RETRY_LIMIT":     &c.RetryLimit,
		"NEWSMITH_MIN_BODY":        &c.Extract.MinBodyLength,
	} {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*time.Duration{
		"NEWSMITH_RETRY_BASE_DELAY": &c.RetryBaseDelay,
		"NEWSMITH_FETCH_TIMEOUT":    &c.Fetch.Timeout,
		"NEWSMITH_BACKEND_TIMEOUT":  &c.Generation.Timeout,
	} {
		if err := setDuration(key, dst); err != nil {
			return err
		}
	}

	if v := getenv("NEWSMITH_FETCH_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid NEWSMITH_FETCH_RATE: %w", err)
		}
		c.Fetch.Rate = r
	}

	return nil
}

// ResolveCredentials reads the generation credential from the variable the
// selected backend's vendor documents. Call it after every override of
// Generation.Backend.
func (c *Config) ResolveCredentials(getenv func(string) string) {
	var key string
	switch c.Generation.Backend {
	case BackendOpenAI:
		key = "OPENAI_API_KEY"
	case BackendAnthropic:
		key = "ANTHROPIC_API_KEY"
	default:
		return
	}
	if v := getenv(key); v != "" {
		c.Generation.APIKey = v
	}
}
