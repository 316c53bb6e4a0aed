// Package scrape drives a site through the steps of scraping one story and
// runs batches of independent scrapes.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pevans/ffscrape/sites"
	"github.com/pevans/ffscrape/story"
)

// State is a step of a single scrape. Done, NotFound and Failed are final.
type State string

const (
	Start             State = "start"
	URLCorrected      State = "url_corrected"
	IndexFetched      State = "index_fetched"
	Verified          State = "verified"
	MetadataExtracted State = "metadata_extracted"
	ChaptersFetched   State = "chapters_fetched"
	Done              State = "done"
	NotFound          State = "not_found"
	Failed            State = "failed"
)

// Final reports whether no further transition is possible.
func (s State) Final() bool {
	return s == Done || s == NotFound || s == Failed
}

// Result is the outcome of scraping one URL.
type Result struct {
	// URL is the URL as given.
	URL          string
	CorrectedURL string
	// Site is the name of the site that handled the URL, if any.
	Site  string
	State State
	// Reached is the last state passed before a failure.
	Reached State
	// Story is set only when State is Done.
	Story *story.Story
	// Err is set only when State is Failed.
	Err error

	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether the story was scraped completely.
func (r Result) OK() bool {
	return r.State == Done
}

// Outcome returns the final state as a string, e.g. "done" or "not_found".
func (r Result) Outcome() string {
	return string(r.State)
}

// Scraper scrapes stories from any site in its registry.
type Scraper struct {
	registry *sites.Registry
	loader   sites.PageLoader
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a scraper. A nil logger means slog.Default().
func New(registry *sites.Registry, loader sites.PageLoader, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		registry: registry,
		loader:   loader,
		logger:   logger,
		now:      time.Now,
	}
}

// Scrape runs one story from Start to a final state. Failures are reported
// in the result rather than returned; a missing story is NotFound with no
// error.
func (s *Scraper) Scrape(ctx context.Context, url string) Result {
	res := Result{URL: url, State: Start, StartedAt: s.now()}
	logger := s.logger.With("url", url)

	fail := func(err error) Result {
		res.Reached = res.State
		res.State = Failed
		res.Err = err
		res.FinishedAt = s.now()
		logger.Warn("scrape failed", "state", res.Reached, "err", err)
		return res
	}
	advance := func(state State) {
		res.State = state
		logger.Debug("scrape advanced", "state", state)
	}

	site, err := s.registry.Select(url)
	if err != nil {
		return fail(err)
	}
	res.Site = site.Name()
	logger = logger.With("site", res.Site)

	corrected, err := site.CorrectURL(url)
	if err != nil {
		return fail(err)
	}
	res.CorrectedURL = corrected
	advance(URLCorrected)

	doc, err := s.loader.Load(ctx, corrected)
	if err != nil {
		return fail(fmt.Errorf("failed to load index page: %w", err))
	}
	advance(IndexFetched)

	if !site.CheckStoryExists(doc) {
		res.State = NotFound
		res.FinishedAt = s.now()
		logger.Info("story not found")
		return res
	}
	advance(Verified)

	st := story.New(url)
	site.SetDomain(st)

	chapters, err := site.RecordStoryMetadata(doc, st, corrected)
	if err != nil {
		return fail(fmt.Errorf("failed to record metadata: %w", err))
	}
	advance(MetadataExtracted)

	if err := site.RecordStoryChapters(ctx, s.loader, st, corrected, chapters); err != nil {
		return fail(fmt.Errorf("failed to record chapters: %w", err))
	}
	advance(ChaptersFetched)

	res.Story = st
	res.State = Done
	res.FinishedAt = s.now()
	logger.Info("story scraped",
		"title", st.Title,
		"chapters", st.ChapterCount(),
		"words", st.WordCount())
	return res
}

// ScrapeAll scrapes every URL with at most concurrency scrapes in flight.
// Results are in input order and one story's failure never stops the
// others.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(urls))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, url := range urls {
		semaphore <- struct{}{} // Acquire semaphore
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release semaphore
			results[i] = s.Scrape(ctx, url)
		}(i, url)
	}

	wg.Wait()
	return results
}

// Summary counts results by outcome.
type Summary struct {
	Done     int
	NotFound int
	Failed   int
}

// Summarize counts the outcomes of a batch.
func Summarize(results []Result) Summary {
	var sum Summary
	for _, res := range results {
		switch res.State {
		case Done:
			sum.Done++
		case NotFound:
			sum.NotFound++
		default:
			sum.Failed++
		}
	}
	return sum
}

// IsURLError reports whether the result failed because its URL was
// malformed or unsupported rather than because of the site.
func (r Result) IsURLError() bool {
	var urlErr *sites.URLError
	return errors.As(r.Err, &urlErr) || errors.Is(r.Err, sites.ErrNoSite)
}
