package main

import (
	"fmt"

	"github.com/pevans/newsmith/articles"
	"github.com/pevans/newsmith/config"
	"github.com/spf13/cobra"
)

func newArticlesCommand() *cobra.Command {
	var kind string
	var unprocessed bool
	var limit int

	cmd := &cobra.Command{
		Use:   "articles",
		Short: "List stored articles, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := articleFilter(kind, unprocessed, limit)
			if err != nil {
				return err
			}

			cfg, log, err := loadConfig(func(*config.Config) {}, (*config.Config).Validate)
			if err != nil {
				return err
			}
			defer log.Sync()

			client := articles.NewClient(cfg.Store.URL, cfg.Store.Timeout)
			list, err := client.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list articles: %w", err)
			}

			if outputFormat == "json" {
				printJSON(cmd.OutOrStdout(), list)
				return nil
			}
			printArticleTable(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind: original or rewritten")
	cmd.Flags().BoolVar(&unprocessed, "unprocessed", false, "show only originals still waiting for a rewrite")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of articles to display")
	return cmd
}

// articleFilter builds the store filter from the command's flags.
// --unprocessed only applies to originals.
func articleFilter(kind string, unprocessed bool, limit int) (articles.ArticleFilter, error) {
	filter := articles.ArticleFilter{Limit: limit}

	if kind != "" {
		if kind != articles.KindOriginal && kind != articles.KindRewritten {
			return filter, fmt.Errorf("--kind must be %q or %q", articles.KindOriginal, articles.KindRewritten)
		}
		filter.Kind = &kind
	}

	if unprocessed {
		if kind == articles.KindRewritten {
			return filter, fmt.Errorf("--unprocessed lists originals and cannot be combined with --kind %s", articles.KindRewritten)
		}
		original := articles.KindOriginal
		processed := false
		filter.Kind = &original
		filter.Processed = &processed
	}

	return filter, nil
}
