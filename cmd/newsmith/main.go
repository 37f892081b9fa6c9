package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pevans/newsmith/config"
	"github.com/pevans/newsmith/extract"
	"github.com/pevans/newsmith/fetch"
	"github.com/pevans/newsmith/logger"
	"github.com/pevans/newsmith/scraper"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	outputFormat string
)

func main() {
	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	// SIGINT/SIGTERM cancel the run; the current fetch fails and the job
	// reports what it finished.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsmith",
		Short: "Acquire articles from a listing and publish rewrites of them",
		Long: `newsmith runs two batch jobs against an article store:

  acquire  walks a listing, extracts new articles and stores them
  rewrite  rewrites the newest unprocessed article with cited references

Each invocation is one run; schedule them with cron or similar.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.newsmith/config.yaml)")
	root.PersistentFlags().StringVar(&outputFormat, "format", "table", "summary format: table or json")

	root.AddCommand(newAcquireCommand())
	root.AddCommand(newRewriteCommand())
	root.AddCommand(newArticlesCommand())
	return root
}

// loadConfig reads configuration with the command's flag overrides and builds
// the run logger. validate is the job-specific check.
func loadConfig(override func(*config.Config), validate func(*config.Config) error) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(cfgFile, override)
	if err != nil {
		return nil, nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// newExtractor builds the shared fetcher and extractor.
func newExtractor(cfg *config.Config, log logger.Logger) (*fetch.Fetcher, *extract.Extractor) {
	fetcher := fetch.New(cfg.Fetch)

	articleCfg := scraper.DefaultArticleConfig()
	if cfg.Extract.MinBodyLength > 0 {
		articleCfg.MinBodyLength = cfg.Extract.MinBodyLength
	}
	if cfg.Extract.MinTitleLength > 0 {
		articleCfg.MinTitleLength = cfg.Extract.MinTitleLength
	}

	return fetcher, extract.New(fetcher, articleCfg, log)
}
