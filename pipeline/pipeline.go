// Package pipeline runs the acquisition and rewrite jobs. Each call to Run is
// one discrete batch; scheduling is left to the caller.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/extract"
	"github.com/pevans/newsmith/rewrite"
)

// slowStep is the duration after which a single fetch is logged as slow.
const slowStep = 30 * time.Second

// Extractor turns a URL into article text.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*extract.Result, error)
}

// Store is the read side of the article store. *articles.Client satisfies it.
type Store interface {
	LatestUnprocessed(ctx context.Context) (*articles.Article, error)
	LookupBySourceURL(ctx context.Context, sourceURL string) (*articles.Article, error)
	Get(ctx context.Context, id uuid.UUID) (*articles.Article, error)
}

// Publisher is the write side. *publish.Publisher satisfies it.
type Publisher interface {
	PublishSource(ctx context.Context, result *extract.Result, sourceURL string) (uuid.UUID, error)
	PublishRewrite(ctx context.Context, rewritten *rewrite.RewrittenArticle) (uuid.UUID, error)
}

// Rewriter generates a rewrite. *rewrite.Orchestrator satisfies it.
type Rewriter interface {
	Rewrite(ctx context.Context, source rewrite.SourceArticle, refs []rewrite.ReferenceArticle) (*rewrite.RewrittenArticle, error)
}

func newRunID() string {
	return uuid.New().String()
}
