package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pevans/ffscrape/history"
	"github.com/pevans/ffscrape/ingest"
	"github.com/pevans/ffscrape/library"
)

// printOutcomes prints one line per scraped URL and a summary. It returns
// the number of stories that failed, counting storage failures.
func printOutcomes(w io.Writer, outcomes []ingest.Outcome) int {
	var done, notFound, failed int

	for _, out := range outcomes {
		switch {
		case out.OK():
			done++
			fmt.Fprintf(w, "✓ %s\n", out.URL)
			fmt.Fprintf(w, "   %s | %d chapters | %d words\n",
				truncate(out.Story.Title, 60),
				out.Story.ChapterCount(),
				out.Story.WordCount(),
			)
			fmt.Fprintf(w, "   ID: %s\n", out.StoryID)
		case out.Outcome() == "not_found":
			notFound++
			fmt.Fprintf(w, "? %s\n", out.URL)
			fmt.Fprintf(w, "   story not found\n")
		default:
			failed++
			fmt.Fprintf(w, "✗ %s\n", out.URL)
			err := out.Err
			if err == nil {
				err = out.StoreErr
			}
			fmt.Fprintf(w, "   %v\n", err)
		}
	}

	fmt.Fprintf(w, "\n%d done, %d not found, %d failed\n", done, notFound, failed)
	return failed
}

// printStoriesTable prints library entries in human-readable table format
func printStoriesTable(w io.Writer, entries []library.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No stories in the library.")
		return
	}

	for _, entry := range entries {
		st := entry.Story
		fmt.Fprintf(w, "%s\n", truncate(st.Title, 70))
		fmt.Fprintf(w, "   by %s | %s | %d chapters | %d words\n",
			st.Author,
			st.Domain,
			st.ChapterCount(),
			st.WordCount(),
		)
		if st.Status != "" || st.Rating != "" {
			fmt.Fprintf(w, "   Status: %s | Rating: %s\n", orDash(st.Status), orDash(st.Rating))
		}
		fmt.Fprintf(w, "   Saved: %s\n", entry.SavedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "   URL: %s\n", st.URL)
		fmt.Fprintf(w, "   ID: %s\n", entry.ID)
		fmt.Fprintln(w)
	}
}

// printStoriesCompact prints one line per library entry
func printStoriesCompact(w io.Writer, entries []library.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No stories in the library.")
		return
	}

	for _, entry := range entries {
		fmt.Fprintf(w, "%s %s (%s)\n", shortID(entry.ID.String()), entry.Story.Title, entry.Story.Author)
	}
}

// printHistory prints scrape records and the all-time outcome counts
func printHistory(w io.Writer, entries []history.Entry, counts map[string]int) {
	fmt.Fprintf(w, "All time: %d done, %d not found, %d failed\n\n",
		counts["done"], counts["not_found"], counts["failed"])

	if len(entries) == 0 {
		fmt.Fprintln(w, "No scrapes recorded.")
		return
	}

	fmt.Fprintf(w, "%-16s %-9s %-20s %s\n", "STARTED", "OUTCOME", "SITE", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, entry := range entries {
		fmt.Fprintf(w, "%-16s %-9s %-20s %s\n",
			entry.StartedAt.Local().Format("2006-01-02 15:04"),
			entry.Outcome,
			truncate(orDash(entry.Site), 20),
			entry.URL,
		)
		if entry.Error != "" {
			fmt.Fprintf(w, "%-16s %s\n", "", truncate(entry.Error, 80))
		}
	}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
