package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/newsmith/logger"
)

// FeedLocator reads candidate URLs from an RSS or Atom feed instead of a
// paginated listing. gofeed normalizes both formats.
type FeedLocator struct {
	fetcher Fetcher
	log     logger.Logger
}

// NewFeedLocator creates a feed-backed locator.
func NewFeedLocator(fetcher Fetcher, log logger.Logger) *FeedLocator {
	if log == nil {
		log = logger.NewNop()
	}
	return &FeedLocator{fetcher: fetcher, log: log}
}

// LocateBatch returns up to batchSize unique item links, oldest first.
// Items without a publish date are treated as older than dated ones and
// keep their reverse feed order, since feeds list newest first.
func (l *FeedLocator) LocateBatch(ctx context.Context, feedURL string, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		return []string{}, nil
	}

	body, _, err := l.fetcher.Get(ctx, feedURL)
	if err != nil {
		l.log.Warn("feed fetch failed", logger.String("url", feedURL), logger.Error(err))
		return []string{}, fmt.Errorf("%w: %v", ErrNoArticles, err)
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return []string{}, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]*gofeed.Item, 0, len(feed.Items))
	for i := len(feed.Items) - 1; i >= 0; i-- {
		items = append(items, feed.Items[i])
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := itemTime(items[i]), itemTime(items[j])
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})

	links := make([]string, 0, batchSize)
	seen := make(map[string]bool)
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
		if len(links) == batchSize {
			break
		}
	}

	l.log.Info("feed scanned",
		logger.String("url", feedURL),
		logger.Int("items", len(feed.Items)),
		logger.Int("taken", len(links)),
	)

	if len(links) == 0 {
		return links, ErrNoArticles
	}
	return links, nil
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}
