// Command ffscrape-api serves the ffscrape HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/ffscrape/api"
	"github.com/pevans/ffscrape/app"
	"github.com/pevans/ffscrape/config"
	"github.com/spf13/cobra"
)

// Flags.
var (
	flagConfig string
	flagAddr   string
)

var rootCmd = &cobra.Command{
	Use:   "ffscrape-api",
	Short: "Serve the ffscrape HTTP API under /api/v1",
	Args:  cobra.NoArgs,
	RunE:  runServer,

	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Config file (default: ~/.ffscrape/config.yaml)")
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func runServer(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadPath(flagConfig)
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.API.Addr = flagAddr
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := app.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	return run(cfg, logger)
}

func run(cfg *config.Config, logger *slog.Logger) error {
	a, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(a.Ingest, a.Library, a.History, a.Registry, a.Loader)
	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           server.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	logger.Info("starting ffscrape API server", "addr", cfg.API.Addr, "base", "/api/v1")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
