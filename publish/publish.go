// Package publish writes extracted source articles and finished rewrites to
// the article store.
package publish

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/extract"
	"github.com/pevans/newsmith/logger"
	"github.com/pevans/newsmith/rewrite"
)

// Store is the part of the article store the publisher writes to.
// *articles.Client satisfies it.
type Store interface {
	Create(ctx context.Context, req articles.CreateRequest) (*articles.Article, error)
}

// Publisher creates store records.
type Publisher struct {
	store Store
	log   logger.Logger
}

// New creates a publisher.
func New(store Store, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{store: store, log: log}
}

// PublishSource stores an extracted article as an original keyed by its
// source URL. A URL stored before returns articles.ErrDuplicate.
func (p *Publisher) PublishSource(ctx context.Context, result *extract.Result, sourceURL string) (uuid.UUID, error) {
	article, err := p.store.Create(ctx, articles.CreateRequest{
		Title:       result.Title,
		Content:     result.Body,
		Kind:        articles.KindOriginal,
		SourceURL:   sourceURL,
		PublishedAt: result.PublishedAt,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("publish source %s: %w", sourceURL, err)
	}

	p.log.Info("source article published",
		logger.String("id", article.ID.String()),
		logger.String("source_url", sourceURL),
	)
	return article.ID, nil
}

// PublishRewrite stores a rewrite under its source article. The store flags
// the source as processed.
func (p *Publisher) PublishRewrite(ctx context.Context, rewritten *rewrite.RewrittenArticle) (uuid.UUID, error) {
	parentID, err := uuid.Parse(rewritten.SourceID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid source id %q", articles.ErrValidation, rewritten.SourceID)
	}

	article, err := p.store.Create(ctx, articles.CreateRequest{
		Title:      rewritten.Title,
		Content:    rewritten.Body,
		Kind:       articles.KindRewritten,
		ParentID:   &parentID,
		References: rewritten.ReferenceURLs,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("publish rewrite of %s: %w", rewritten.SourceID, err)
	}

	p.log.Info("rewrite published",
		logger.String("id", article.ID.String()),
		logger.String("parent_id", parentID.String()),
		logger.Int("references", len(rewritten.ReferenceURLs)),
	)
	return article.ID, nil
}
