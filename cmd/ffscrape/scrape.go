package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/pevans/ffscrape/app"
	"github.com/pevans/ffscrape/config"
	"github.com/pevans/ffscrape/discovery"
	"github.com/spf13/cobra"
)

// errStoriesFailed makes the process exit non-zero after a batch in which
// some story failed.
var errStoriesFailed = errors.New("some stories failed")

// Batch flags, shared by scrape, feed and page.
var (
	flagConcurrency int
	flagDelay       time.Duration
	flagDryRun      bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>...",
	Short: "Scrape stories into the library",
	Long: `Scrape downloads every story, saves the finished ones to the library and
records each attempt in the history. The command exits with status 1 if
any story failed.

Examples:
  ffscrape scrape https://www.fanfiction.net/s/13544601/1
  ffscrape scrape --concurrency 4 --delay 5s https://archiveofourown.org/works/1 https://archiveofourown.org/works/2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScrape,
}

var feedCmd = &cobra.Command{
	Use:   "feed <feed-url>",
	Short: "Scrape the stories linked from an RSS or Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeed,
}

var pageCmd = &cobra.Command{
	Use:   "page <page-url>",
	Short: "Scrape the stories linked from a web page, such as an author profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runPage,
}

func init() {
	for _, cmd := range []*cobra.Command{scrapeCmd, feedCmd, pageCmd} {
		cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Stories scraped at once (default from config)")
		cmd.Flags().DurationVar(&flagDelay, "delay", 0, "Pause before each chapter fetch (default from config)")
		rootCmd.AddCommand(cmd)
	}
	feedCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Only print the story URLs found")
	pageCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Only print the story URLs found")
}

// openBatchApp opens the app with the batch flags applied.
func openBatchApp(cmd *cobra.Command) (*app.App, error) {
	return openApp(func(cfg *config.Config) {
		if cmd.Flags().Changed("concurrency") {
			cfg.Scrape.Concurrency = flagConcurrency
		}
		if cmd.Flags().Changed("delay") {
			cfg.Scrape.ChapterDelay = flagDelay
		}
	})
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, err := openBatchApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return runBatch(cmd, a, args)
}

func runFeed(cmd *cobra.Command, args []string) error {
	a, err := openBatchApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	urls, err := discovery.FeedStoryURLs(cmd.Context(), a.Loader, args[0], a.Registry)
	if err != nil {
		return err
	}
	return runDiscovered(cmd, a, urls)
}

func runPage(cmd *cobra.Command, args []string) error {
	a, err := openBatchApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.Loader.Load(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}

	return runDiscovered(cmd, a, discovery.PageStoryURLs(doc, args[0], a.Registry))
}

func runDiscovered(cmd *cobra.Command, a *app.App, urls []string) error {
	out := cmd.OutOrStdout()

	if len(urls) == 0 {
		fmt.Fprintln(out, "No supported story links found.")
		return nil
	}
	if flagDryRun {
		for _, url := range urls {
			fmt.Fprintln(out, url)
		}
		return nil
	}

	fmt.Fprintf(out, "Found %d stories.\n\n", len(urls))
	return runBatch(cmd, a, urls)
}

func runBatch(cmd *cobra.Command, a *app.App, urls []string) error {
	outcomes := a.Ingest.Ingest(cmd.Context(), urls)

	if printOutcomes(cmd.OutOrStdout(), outcomes) > 0 {
		return errStoriesFailed
	}
	return nil
}
