// Package sites defines the contract every supported fan-fiction site
// implements, the registry that picks a site for a URL, and the site
// implementations themselves.
package sites

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/ffscrape/story"
)

// URL problems reported by CorrectURL.
const (
	ReasonUnknownFormat  = "Unknown URL format"
	ReasonNoStoryID      = "No Story ID given"
	ReasonMissingStoryID = "Missing story ID"
)

var (
	// ErrNoSite is returned by Registry.Select when no site accepts a URL.
	ErrNoSite = errors.New("no site can handle this URL")
	// ErrLayout is returned when a fetched page lacks the structure a site
	// needs to extract a story.
	ErrLayout = errors.New("unexpected page layout")
	// ErrAdultContent is returned alongside ErrLayout when a site shows an
	// adult content warning instead of the story.
	ErrAdultContent = errors.New("story is behind an adult content warning")
)

// URLError describes a URL that a site cannot turn into a story URL.
type URLError struct {
	URL    string
	Reason string
}

func (e *URLError) Error() string {
	return e.Reason
}

func urlError(url, reason string) *URLError {
	return &URLError{URL: url, Reason: reason}
}

// PageLoader fetches and parses a page.
type PageLoader interface {
	Load(ctx context.Context, url string) (*goquery.Document, error)
}

// ChapterRef points at one chapter found on a story's index page. Link is
// relative to the corrected story URL unless it is absolute.
type ChapterRef struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// Site is implemented once per supported website. Implementations hold only
// configuration, so a single value may serve any number of concurrent
// scrapes.
type Site interface {
	// Name returns the human-readable site name.
	Name() string

	// SetDomain writes the site name into the story.
	SetDomain(st *story.Story)

	// CanHandle reports whether the URL belongs to this site. It never
	// touches the network.
	CanHandle(url string) bool

	// CorrectURL turns any URL for a story into the canonical index URL the
	// site fetches. Applying it to its own output returns the same value.
	// Malformed URLs produce a *URLError.
	CorrectURL(url string) (string, error)

	// CheckStoryExists reports whether the fetched index page shows a story
	// rather than the site's "not found" page.
	CheckStoryExists(doc *goquery.Document) bool

	// RecordStoryMetadata fills the story from the index page found at
	// pageURL and returns the story's chapters in reading order.
	RecordStoryMetadata(doc *goquery.Document, st *story.Story, pageURL string) ([]ChapterRef, error)

	// RecordStoryChapters fetches each chapter in order, pausing for the
	// configured delay before every fetch, and appends it to the story.
	RecordStoryChapters(ctx context.Context, load PageLoader, st *story.Story, pageURL string, chapters []ChapterRef) error
}

// Options configure a site.
type Options struct {
	// ChapterDelay is the pause before each chapter fetch.
	ChapterDelay time.Duration
	// Sleep performs the pause. Defaults to time.Sleep.
	Sleep func(time.Duration)
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// base carries the configuration shared by all sites.
type base struct {
	delay  time.Duration
	sleep  func(time.Duration)
	logger *slog.Logger
}

func newBase(opts Options, name string) base {
	b := base{
		delay:  opts.ChapterDelay,
		sleep:  opts.Sleep,
		logger: opts.Logger,
	}
	if b.sleep == nil {
		b.sleep = time.Sleep
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("site", name)
	return b
}

// wait blocks for the chapter delay. The pause ignores context cancellation.
func (b base) wait() {
	if b.delay > 0 {
		b.sleep(b.delay)
	}
}
