// Package loader fetches story pages over HTTP and parses them for the site
// adapters.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pevans/ffscrape/sites"
	"golang.org/x/time/rate"
)

// Defaults applied by New when an option is left at its zero value.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "ffscrape/1.0 (+https://github.com/pevans/ffscrape)"
	DefaultCacheSize = 256
)

// FetchError reports a page that could not be downloaded. StatusCode is zero
// when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configure an HTTPLoader.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Retries is the number of extra attempts after a transport error or a
	// 5xx response.
	Retries int
	// RequestsPerSecond limits outgoing requests. Zero means no limit.
	RequestsPerSecond float64
	// CacheTTL is how long fetched pages are reused. Zero disables caching.
	CacheTTL  time.Duration
	CacheSize int
	Logger    *slog.Logger
}

// HTTPLoader downloads pages with a shared, rate-limited client.
type HTTPLoader struct {
	http   *resty.Client
	cache  *expirable.LRU[string, []byte]
	logger *slog.Logger
}

var _ sites.PageLoader = (*HTTPLoader)(nil)

// New creates a loader from the options.
func New(opts Options) *HTTPLoader {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New()
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(opts.Retries)
	client.SetRetryWaitTime(100 * time.Millisecond)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res.StatusCode() >= 500
	})

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	// A burst of 1 spaces requests evenly
	rateLimiter := rate.NewLimiter(limit, 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	l := &HTTPLoader{
		http:   client,
		logger: logger,
	}
	if opts.CacheTTL > 0 {
		l.cache = expirable.NewLRU[string, []byte](opts.CacheSize, nil, opts.CacheTTL)
	}
	return l
}

// Load fetches the page and parses it as HTML.
func (l *HTTPLoader) Load(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := l.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	return doc, nil
}

// Fetch returns the raw body of the page, from the cache when possible.
func (l *HTTPLoader) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := cacheKey(url)
	if l.cache != nil {
		if body, ok := l.cache.Get(key); ok {
			l.logger.Debug("page served from cache", "url", url)
			return body, nil
		}
	}

	l.logger.Debug("fetching page", "url", url)
	res, err := l.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if res.StatusCode() < 200 || res.StatusCode() > 299 {
		return nil, &FetchError{
			URL:        url,
			StatusCode: res.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", res.Status()),
		}
	}

	body := res.Body()
	if l.cache != nil {
		l.cache.Add(key, body)
	}
	return body, nil
}

// cacheKey normalizes the URL so trivially different spellings share a
// cache entry. Unparseable URLs are used as they are.
func cacheKey(url string) string {
	normalized, err := purell.NormalizeURLString(
		url,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
	if err != nil {
		return url
	}
	return normalized
}
