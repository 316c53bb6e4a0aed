// Package app wires the configured loader, sites, storage and scraper
// together for the ffscrape binaries.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pevans/ffscrape/config"
	"github.com/pevans/ffscrape/history"
	"github.com/pevans/ffscrape/ingest"
	"github.com/pevans/ffscrape/library"
	"github.com/pevans/ffscrape/loader"
	"github.com/pevans/ffscrape/scrape"
	"github.com/pevans/ffscrape/sites"
)

// App holds everything a command needs.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *sites.Registry
	Loader   *loader.HTTPLoader
	Scraper  *scrape.Scraper
	Library  *library.Library
	History  *history.Store
	Ingest   *ingest.Service
}

// NewLogger returns a tint logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// Open builds an App from cfg. The caller must Close it.
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	lib, err := library.New(cfg.Storage.LibraryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	hist, err := history.New(cfg.Storage.HistoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	registry := sites.Default(sites.Options{
		ChapterDelay: cfg.Scrape.ChapterDelay,
		Logger:       logger,
	})

	pages := loader.New(loader.Options{
		Timeout:           cfg.Fetch.Timeout,
		UserAgent:         cfg.Fetch.UserAgent,
		Retries:           cfg.Fetch.Retries,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		CacheTTL:          cfg.Fetch.CacheTTL,
		CacheSize:         cfg.Fetch.CacheSize,
		Logger:            logger,
	})

	scraper := scrape.New(registry, pages, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Loader:   pages,
		Scraper:  scraper,
		Library:  lib,
		History:  hist,
		Ingest:   ingest.New(scraper, lib, hist, cfg.Scrape.Concurrency, logger),
	}, nil
}

// Close releases the history database.
func (a *App) Close() error {
	return a.History.Close()
}
