// Package ingest scrapes batches of URLs, saves finished stories to the
// library and records every attempt in the history.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pevans/ffscrape/history"
	"github.com/pevans/ffscrape/library"
	"github.com/pevans/ffscrape/scrape"
)

// Outcome is the result of ingesting one URL.
type Outcome struct {
	scrape.Result
	// StoryID is the library ID of the saved story, if it was saved.
	StoryID *uuid.UUID
	// RecordID is the history record for the attempt.
	RecordID uuid.UUID
	// StoreErr is set when scraping worked but saving or recording failed.
	StoreErr error
}

// OK reports whether the story was scraped and stored.
func (o Outcome) OK() bool {
	return o.Result.OK() && o.StoreErr == nil
}

// Service ties the scraper to storage.
type Service struct {
	scraper     *scrape.Scraper
	library     *library.Library
	history     *history.Store
	concurrency int
	logger      *slog.Logger
}

// New creates an ingest service. A nil logger means slog.Default().
func New(
	scraper *scrape.Scraper,
	lib *library.Library,
	hist *history.Store,
	concurrency int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		scraper:     scraper,
		library:     lib,
		history:     hist,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Ingest scrapes the URLs and stores the results. Outcomes are in input
// order; a failure for one URL never stops the rest.
func (s *Service) Ingest(ctx context.Context, urls []string) []Outcome {
	results := s.scraper.ScrapeAll(ctx, urls, s.concurrency)

	outcomes := make([]Outcome, len(results))
	for i, res := range results {
		outcomes[i] = s.store(res)
	}

	sum := scrape.Summarize(results)
	s.logger.Info("batch finished",
		"done", sum.Done,
		"not_found", sum.NotFound,
		"failed", sum.Failed)

	return outcomes
}

func (s *Service) store(res scrape.Result) Outcome {
	out := Outcome{Result: res}

	if res.OK() {
		entry, err := s.library.Add(res.Story)
		if err != nil {
			out.StoreErr = fmt.Errorf("failed to save story: %w", err)
			s.logger.Error("failed to save story", "url", res.URL, "err", err)
		} else {
			out.StoryID = &entry.ID
		}
	}

	record, err := s.history.Record(history.FromResult(res, out.StoryID))
	if err != nil {
		if out.StoreErr == nil {
			out.StoreErr = fmt.Errorf("failed to record scrape: %w", err)
		}
		s.logger.Error("failed to record scrape", "url", res.URL, "err", err)
		return out
	}
	out.RecordID = record.ID

	return out
}
