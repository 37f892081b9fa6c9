// Package rewrite turns a source article and its reference articles into a
// rewritten article. The orchestrator builds the prompt, calls the
// generation backend with bounded retries on rate limits, and replaces any
// model-written citations with the exact reference URLs.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pevans/newsmith/llm"
	"github.com/pevans/newsmith/logger"
	"github.com/pevans/newsmith/retry"
)

var (
	// ErrNoReferences is returned when a rewrite is requested without any
	// reference articles. The backend is never called.
	ErrNoReferences = errors.New("no reference articles")
	// ErrEmptyRewrite is returned when the model output has no body left
	// after its title and references are removed.
	ErrEmptyRewrite = errors.New("generated article is empty")
)

// SourceArticle is a stored article waiting to be rewritten.
type SourceArticle struct {
	ID    string
	URL   string
	Title string
	Body  string
}

// ReferenceArticle is an extracted article used for style and citation.
type ReferenceArticle struct {
	URL   string
	Title string
	Body  string
}

// RewrittenArticle is the publishable result. Body always ends with the
// references block built from ReferenceURLs.
type RewrittenArticle struct {
	Title         string
	Body          string
	SourceID      string
	ReferenceURLs []string
}

// Config bounds the retry policy for rate-limited backends.
type Config struct {
	RetryLimit int
	BaseDelay  time.Duration
	// Sleep replaces the real wait in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Orchestrator drives one rewrite.
type Orchestrator struct {
	backend llm.Backend
	cfg     Config
	log     logger.Logger
}

// New creates an orchestrator for backend.
func New(backend llm.Backend, cfg Config, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{backend: backend, cfg: cfg, log: log}
}

// Rewrite generates a rewritten article citing refs in order.
func (o *Orchestrator) Rewrite(ctx context.Context, source SourceArticle, refs []ReferenceArticle) (*RewrittenArticle, error) {
	if len(refs) == 0 {
		return nil, ErrNoReferences
	}

	prompt := BuildPrompt(source, refs)

	var output string
	err := retry.Do(ctx, retry.Config{
		MaxAttempts: o.cfg.RetryLimit,
		BaseDelay:   o.cfg.BaseDelay,
		IsRetryable: func(err error) bool { return errors.Is(err, llm.ErrRateLimited) },
		Sleep:       o.cfg.Sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			o.log.Warn("generation rate limited, backing off",
				logger.String("backend", o.backend.Name()),
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Error(err),
			)
		},
	}, func(ctx context.Context) error {
		text, err := o.backend.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		output = text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	title, body := ParseOutput(output, source.Title)
	body = StripReferences(body)
	if body == "" {
		return nil, ErrEmptyRewrite
	}

	urls := make([]string, len(refs))
	for i, ref := range refs {
		urls[i] = ref.URL
	}

	o.log.Info("article rewritten",
		logger.String("source_id", source.ID),
		logger.String("backend", o.backend.Name()),
		logger.Strings("references", urls),
	)

	return &RewrittenArticle{
		Title:         title,
		Body:          body + "\n\n" + ReferencesBlock(urls),
		SourceID:      source.ID,
		ReferenceURLs: urls,
	}, nil
}
