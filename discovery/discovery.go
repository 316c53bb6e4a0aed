// Package discovery finds story URLs to scrape on feeds and ordinary pages,
// keeping only the links some registered site can handle.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/ffscrape/sites"
)

// Fetcher returns the raw body at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FeedStoryURLs fetches an RSS or Atom feed and returns the item links that a
// registered site can handle, in feed order. A link appearing twice in the
// feed is returned once.
func FeedStoryURLs(ctx context.Context, fetch Fetcher, feedURL string, registry *sites.Registry) ([]string, error) {
	body, err := fetch.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	// gofeed detects RSS and Atom on its own
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return filterLinks(feedLinks(feed), registry), nil
}

// feedLinks returns each item's link, falling back to its first alternate
// link.
func feedLinks(feed *gofeed.Feed) []string {
	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := item.Link
		if link == "" && len(item.Links) > 0 {
			link = item.Links[0]
		}
		if link != "" {
			links = append(links, strings.TrimSpace(link))
		}
	}
	return links
}

func filterLinks(links []string, registry *sites.Registry) []string {
	seen := make(map[string]bool)
	stories := []string{}
	for _, link := range links {
		if seen[link] {
			continue
		}
		seen[link] = true

		if _, err := registry.Select(link); err != nil {
			continue
		}
		stories = append(stories, link)
	}
	return stories
}

// PageStoryURLs returns the corrected story URLs linked from an HTML page,
// such as an author profile or a tag listing, in page order. Links to
// different chapters of one story collapse into a single URL.
func PageStoryURLs(doc *goquery.Document, pageURL string, registry *sites.Registry) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return []string{}
	}

	seen := make(map[string]bool)
	stories := []string{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		link := base.ResolveReference(ref).String()

		site, err := registry.Select(link)
		if err != nil {
			return
		}
		corrected, err := site.CorrectURL(link)
		if err != nil {
			return
		}
		if seen[corrected] {
			return
		}
		seen[corrected] = true
		stories = append(stories, corrected)
	})
	return stories
}
