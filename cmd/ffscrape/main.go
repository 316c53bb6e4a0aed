// Command ffscrape scrapes fan fiction into a local library.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pevans/ffscrape/app"
	"github.com/pevans/ffscrape/config"
	"github.com/spf13/cobra"
)

// Global flags.
var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ffscrape",
	Short: "ffscrape - fan fiction scraper",
	Long: `ffscrape downloads stories from Fanfiction.net, HP Fanfic Archive and
Archive of Our Own into a local library.

Settings come from ~/.ffscrape/config.yaml, FFSCRAPE_* environment
variables and flags, in increasing order of precedence. Run
"ffscrape init" to write a config file with the defaults.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ~/.ffscrape/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves settings and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadPath(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

// openApp loads the config, lets the command adjust it, then builds the
// app and installs its logger as the default.
func openApp(adjust func(*config.Config)) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(os.Stderr, level)

	a, err := app.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}
