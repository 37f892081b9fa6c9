package main

import (
	"fmt"

	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/config"
	"github.com/pevans/newsmith/llm"
	"github.com/pevans/newsmith/pipeline"
	"github.com/pevans/newsmith/publish"
	"github.com/pevans/newsmith/rewrite"
	"github.com/pevans/newsmith/search"
	"github.com/spf13/cobra"
)

func newRewriteCommand() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Rewrite the newest unprocessed source article",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(func(c *config.Config) {
				if backend != "" {
					c.Generation.Backend = backend
				}
			}, (*config.Config).ValidateRewrite)
			if err != nil {
				return err
			}
			defer log.Sync()

			generator, err := llm.New(cfg.Generation)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			fetcher, extractor := newExtractor(cfg, log)
			provider, err := search.New(cfg.Search, cfg.Fetch.Timeout, fetcher, log)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			client := articles.NewClient(cfg.Store.URL, cfg.Store.Timeout)
			orchestrator := rewrite.New(generator, rewrite.Config{
				RetryLimit: cfg.RetryLimit,
				BaseDelay:  cfg.RetryBaseDelay,
			}, log)

			job := pipeline.NewRewriteJob(
				client,
				provider,
				extractor,
				orchestrator,
				publish.New(client, log),
				cfg.ReferenceCount,
				log,
			)

			result, err := job.Run(cmd.Context())
			if result != nil {
				printRewriteResult(cmd.OutOrStdout(), result, outputFormat)
			}
			if err != nil {
				return fmt.Errorf("rewrite failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "generation backend: openai, anthropic or local (overrides generation.backend)")
	return cmd
}
