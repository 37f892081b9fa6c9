package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/logger"
	"github.com/pevans/newsmith/rewrite"
	"github.com/pevans/newsmith/search"
)

// Status is the outcome of a rewrite run.
type Status string

const (
	StatusRewritten           Status = "rewritten"
	StatusSkippedNoSource     Status = "skipped_no_source"
	StatusSkippedProcessed    Status = "skipped_processed"
	StatusSkippedNoReferences Status = "skipped_no_references"
	StatusFailed              Status = "failed"
)

// Skipped reports whether the run ended without work and without error.
func (s Status) Skipped() bool {
	return s == StatusSkippedNoSource || s == StatusSkippedProcessed || s == StatusSkippedNoReferences
}

// RewriteResult summarizes one rewrite run.
type RewriteResult struct {
	RunID     string
	Status    Status
	SourceID  string
	SourceURL string
	RewriteID string
	// References are the cited URLs in search order.
	References []string
	Duration   time.Duration
}

// RewriteJob rewrites the newest unprocessed source article.
type RewriteJob struct {
	store          Store
	search         search.Provider
	extractor      Extractor
	rewriter       Rewriter
	publisher      Publisher
	referenceCount int
	log            logger.Logger
}

// NewRewriteJob creates a rewrite job citing up to referenceCount articles.
func NewRewriteJob(
	store Store,
	provider search.Provider,
	extractor Extractor,
	rewriter Rewriter,
	publisher Publisher,
	referenceCount int,
	log logger.Logger,
) *RewriteJob {
	if log == nil {
		log = logger.NewNop()
	}
	if referenceCount <= 0 {
		referenceCount = 2
	}
	return &RewriteJob{
		store:          store,
		search:         provider,
		extractor:      extractor,
		rewriter:       rewriter,
		publisher:      publisher,
		referenceCount: referenceCount,
		log:            log,
	}
}

// Run performs one rewrite pass over at most one source article. Skipped
// outcomes return a nil error; the source stays unprocessed for the next run.
func (j *RewriteJob) Run(ctx context.Context) (*RewriteResult, error) {
	startTime := time.Now()
	result := &RewriteResult{RunID: newRunID()}
	log := j.log.With(logger.String("run_id", result.RunID), logger.String("job", "rewrite"))

	finish := func(status Status, err error) (*RewriteResult, error) {
		result.Status = status
		result.Duration = time.Since(startTime)
		fields := []logger.Field{
			logger.String("status", string(status)),
			logger.String("source_id", result.SourceID),
			logger.Strings("references", result.References),
			logger.Duration("duration", result.Duration),
		}
		if err != nil {
			log.Error("rewrite failed", append(fields, logger.Error(err))...)
		} else {
			log.Info("rewrite finished", fields...)
		}
		return result, err
	}

	source, err := j.store.LatestUnprocessed(ctx)
	if errors.Is(err, articles.ErrNotFound) {
		return finish(StatusSkippedNoSource, nil)
	}
	if err != nil {
		return finish(StatusFailed, fmt.Errorf("failed to get unprocessed article: %w", err))
	}
	result.SourceID = source.ID.String()
	if source.SourceURL != nil {
		result.SourceURL = *source.SourceURL
	}
	log = log.With(logger.String("source_id", result.SourceID))

	// Re-read right before working so an overlapping run that already
	// published is noticed. Not a lock.
	current, err := j.store.Get(ctx, source.ID)
	if err != nil {
		return finish(StatusFailed, fmt.Errorf("failed to re-read article %s: %w", source.ID, err))
	}
	if current.Processed {
		return finish(StatusSkippedProcessed, nil)
	}

	refs, err := j.gatherReferences(ctx, log, current.Title, result.SourceURL)
	if err != nil {
		return finish(StatusFailed, err)
	}
	if len(refs) == 0 {
		return finish(StatusSkippedNoReferences, nil)
	}
	for _, ref := range refs {
		result.References = append(result.References, ref.URL)
	}

	rewritten, err := j.rewriter.Rewrite(ctx, rewrite.SourceArticle{
		ID:    result.SourceID,
		URL:   result.SourceURL,
		Title: current.Title,
		Body:  current.Content,
	}, refs)
	if errors.Is(err, rewrite.ErrNoReferences) {
		return finish(StatusSkippedNoReferences, nil)
	}
	if err != nil {
		return finish(StatusFailed, fmt.Errorf("failed to rewrite article %s: %w", source.ID, err))
	}

	id, err := j.publisher.PublishRewrite(ctx, rewritten)
	if err != nil {
		return finish(StatusFailed, err)
	}
	result.RewriteID = id.String()

	return finish(StatusRewritten, nil)
}

// gatherReferences searches on the source title and extracts candidates in
// search order until referenceCount succeed. Candidates beyond
// referenceCount are only tried when earlier ones fail to extract. A failed
// search yields no references.
func (j *RewriteJob) gatherReferences(ctx context.Context, log logger.Logger, title, sourceURL string) ([]rewrite.ReferenceArticle, error) {
	candidates, err := j.search.Search(ctx, title, j.referenceCount*2, hostOf(sourceURL))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Search outages skip this run like an empty result; the source is
		// retried on the next one.
		log.Warn("reference search failed", logger.String("query", title), logger.Error(err))
		return nil, nil
	}
	log.Info("reference candidates found", logger.Int("count", len(candidates)), logger.String("query", title))

	var refs []rewrite.ReferenceArticle
	for _, candidate := range candidates {
		if len(refs) == j.referenceCount {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		extracted, err := j.extractor.Extract(ctx, candidate)
		if err != nil {
			log.Warn("reference extraction failed", logger.String("url", candidate), logger.Error(err))
			continue
		}
		refs = append(refs, rewrite.ReferenceArticle{
			URL:   candidate,
			Title: extracted.Title,
			Body:  extracted.Body,
		})
	}
	return refs, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
