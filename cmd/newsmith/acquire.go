package main

import (
	"fmt"

	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/config"
	"github.com/pevans/newsmith/discovery"
	"github.com/pevans/newsmith/pipeline"
	"github.com/pevans/newsmith/publish"
	"github.com/spf13/cobra"
)

func newAcquireCommand() *cobra.Command {
	var listingURL string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Store a batch of new source articles from the listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(func(c *config.Config) {
				if listingURL != "" {
					c.Listing.URL = listingURL
				}
				if batchSize > 0 {
					c.BatchSize = batchSize
				}
			}, (*config.Config).ValidateAcquire)
			if err != nil {
				return err
			}
			defer log.Sync()

			fetcher, extractor := newExtractor(cfg, log)
			client := articles.NewClient(cfg.Store.URL, cfg.Store.Timeout)
			job := pipeline.NewAcquireJob(
				discovery.NewLocator(cfg.Listing, fetcher, log),
				extractor,
				client,
				publish.New(client, log),
				cfg.Listing.URL,
				cfg.BatchSize,
				log,
			)

			result, err := job.Run(cmd.Context())
			if result != nil {
				printAcquireResult(cmd.OutOrStdout(), result, outputFormat)
			}
			if err != nil {
				return fmt.Errorf("acquisition failed: %w", err)
			}
			if result.Found > 0 && result.Stored == 0 && result.Skipped == 0 && result.Duplicates == 0 {
				return fmt.Errorf("acquisition failed: all %d articles failed", result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listingURL, "listing", "", "listing root URL (overrides listing.url)")
	cmd.Flags().IntVar(&batchSize, "batch", 0, "number of articles to acquire (overrides batch_size)")
	return cmd
}
