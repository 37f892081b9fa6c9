package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/discovery"
	"github.com/pevans/newsmith/logger"
)

// AcquireResult summarizes one acquisition run.
type AcquireResult struct {
	RunID string
	// Found is the number of article URLs the listing yielded.
	Found int
	// Stored is the number of new source articles created.
	Stored int
	// Skipped URLs were already in the store before extraction.
	Skipped int
	// Duplicates were rejected by the store on create.
	Duplicates int
	// Failed URLs could not be extracted or published.
	Failed   int
	Errors   []error
	Duration time.Duration
}

// AcquireJob locates a batch of article URLs and stores the ones not yet
// seen.
type AcquireJob struct {
	locator    discovery.Locator
	extractor  Extractor
	store      Store
	publisher  Publisher
	listingURL string
	batchSize  int
	log        logger.Logger
}

// NewAcquireJob creates an acquisition job for listingURL.
func NewAcquireJob(
	locator discovery.Locator,
	extractor Extractor,
	store Store,
	publisher Publisher,
	listingURL string,
	batchSize int,
	log logger.Logger,
) *AcquireJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &AcquireJob{
		locator:    locator,
		extractor:  extractor,
		store:      store,
		publisher:  publisher,
		listingURL: listingURL,
		batchSize:  batchSize,
		log:        log,
	}
}

// Run performs one acquisition pass. Per-URL problems are counted and never
// abort the batch. An error is returned only when the listing URL is
// unusable or ctx is cancelled.
func (j *AcquireJob) Run(ctx context.Context) (*AcquireResult, error) {
	startTime := time.Now()
	result := &AcquireResult{RunID: newRunID()}
	log := j.log.With(logger.String("run_id", result.RunID), logger.String("job", "acquire"))

	log.Info("acquisition started",
		logger.String("listing_url", j.listingURL),
		logger.Int("batch_size", j.batchSize),
	)

	urls, err := j.locator.LocateBatch(ctx, j.listingURL, j.batchSize)
	if err != nil && !errors.Is(err, discovery.ErrNoArticles) {
		result.Duration = time.Since(startTime)
		return result, fmt.Errorf("failed to locate articles: %w", err)
	}
	result.Found = len(urls)
	if result.Found == 0 {
		log.Warn("listing yielded no articles", logger.String("listing_url", j.listingURL))
	}

	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(startTime)
			return result, err
		}
		j.acquireOne(ctx, log, u, result)
	}

	result.Duration = time.Since(startTime)
	log.Info("acquisition finished",
		logger.Int("found", result.Found),
		logger.Int("stored", result.Stored),
		logger.Int("skipped", result.Skipped),
		logger.Int("duplicates", result.Duplicates),
		logger.Int("failed", result.Failed),
		logger.Duration("duration", result.Duration),
	)
	return result, nil
}

func (j *AcquireJob) acquireOne(ctx context.Context, log logger.Logger, u string, result *AcquireResult) {
	log = log.With(logger.String("url", u))

	_, err := j.store.LookupBySourceURL(ctx, u)
	switch {
	case err == nil:
		result.Skipped++
		log.Debug("already stored")
		return
	case !errors.Is(err, articles.ErrNotFound):
		result.Failed++
		result.Errors = append(result.Errors, fmt.Errorf("lookup %s: %w", u, err))
		log.Error("store lookup failed", logger.Error(err))
		return
	}

	startTime := time.Now()
	extracted, err := j.extractor.Extract(ctx, u)
	if duration := time.Since(startTime); duration > slowStep {
		log.Warn("slow extraction", logger.Duration("duration", duration))
	}
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, err)
		log.Warn("extraction failed", logger.Error(err))
		return
	}

	id, err := j.publisher.PublishSource(ctx, extracted, u)
	switch {
	case errors.Is(err, articles.ErrDuplicate):
		result.Duplicates++
		log.Info("store rejected duplicate")
	case err != nil:
		result.Failed++
		result.Errors = append(result.Errors, err)
		log.Error("publish failed", logger.Error(err))
	default:
		result.Stored++
		log.Info("stored", logger.String("id", id.String()), logger.String("title", extracted.Title))
	}
}
