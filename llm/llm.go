// Package llm wraps the text generation backends behind one interface. The
// set of backends is closed: OpenAI chat completions, Anthropic messages and
// a local Ollama server.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pevans/newsmith/config"
)

var (
	// ErrRateLimited marks a throttled request. It is the only error the
	// rewrite orchestrator retries.
	ErrRateLimited = errors.New("generation backend rate limited")
	// ErrUnsupportedBackend is returned by New for an unknown backend name.
	ErrUnsupportedBackend = errors.New("unsupported generation backend")
	// ErrEmptyResponse is returned when a backend answers without text.
	ErrEmptyResponse = errors.New("generation backend returned no text")
)

// Backend generates text for a prompt.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies the backend and model in logs.
	Name() string
}

var (
	_ Backend = (*OpenAI)(nil)
	_ Backend = (*Anthropic)(nil)
	_ Backend = (*Ollama)(nil)
)

const defaultTimeout = 120 * time.Second

// Options are the generation settings shared by every backend.
type Options struct {
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

func (o Options) withDefaults(model, baseURL string) Options {
	if o.Model == "" {
		o.Model = model
	}
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 2048
	}
	return o
}

// New returns the backend named by cfg.Backend. Cloud backends without a
// key fail here, before any work starts.
func New(cfg config.GenerationConfig) (Backend, error) {
	opts := Options{
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	switch cfg.Backend {
	case config.BackendOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY", config.ErrMissingCredential)
		}
		return NewOpenAI(opts), nil
	case config.BackendAnthropic:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY", config.ErrMissingCredential)
		}
		return NewAnthropic(opts), nil
	case config.BackendLocal:
		return NewOllama(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}

// statusError converts a non-2xx response into an error, mapping 429 to
// ErrRateLimited.
// maxErrorBody is the number of characters of an error response kept in
// the returned error.
const maxErrorBody = 300

func statusError(backend string, statusCode int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if runes := []rune(msg); len(runes) > maxErrorBody {
		msg = string(runes[:maxErrorBody])
	}
	if statusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s status %d: %s", ErrRateLimited, backend, statusCode, msg)
	}
	return fmt.Errorf("%s error (status %d): %s", backend, statusCode, msg)
}
