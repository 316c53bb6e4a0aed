// Package export renders stories for reading outside the scraper.
package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/pevans/ffscrape/story"
)

const dateLayout = "2006-01-02"

// Markdown renders the story as a single Markdown document: a metadata
// header followed by every chapter's processed body.
func Markdown(st *story.Story) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", st.Title)
	switch {
	case st.Author != "" && st.AuthorURL != "":
		fmt.Fprintf(&b, "by [%s](%s)\n\n", st.Author, st.AuthorURL)
	case st.Author != "":
		fmt.Fprintf(&b, "by %s\n\n", st.Author)
	}

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "- **%s:** %s\n", name, value)
		}
	}
	field("Site", st.Domain)
	field("Source", st.URL)
	field("Rating", st.Rating)
	field("Status", st.Status)
	field("Universe", strings.Join(st.Universe, ", "))
	field("Categories", strings.Join(st.Categories, ", "))
	field("Genres", strings.Join(st.Genres, ", "))
	field("Characters", strings.Join(st.Characters, ", "))
	field("Pairings", pairings(st.Pairings))
	field("Warnings", strings.Join(st.Warnings, ", "))
	if st.Published != nil {
		field("Published", st.Published.Format(dateLayout))
	}
	if st.Updated != nil {
		field("Updated", st.Updated.Format(dateLayout))
	}
	field("Chapters", strconv.Itoa(st.ChapterCount()))
	field("Words", strconv.Itoa(st.WordCount()))

	if st.Summary != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(st.Summary, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
	}

	for _, chapter := range st.Chapters {
		body, err := htmltomarkdown.ConvertString(chapter.ProcessedBody)
		if err != nil {
			return "", fmt.Errorf("failed to convert chapter %q: %w", chapter.Name, err)
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", chapter.Name, strings.TrimSpace(body))
	}

	return b.String(), nil
}

// pairings renders [[A B] [C D]] as "A/B; C/D".
func pairings(groups [][]string) string {
	rendered := make([]string, 0, len(groups))
	for _, group := range groups {
		rendered = append(rendered, strings.Join(group, "/"))
	}
	return strings.Join(rendered, "; ")
}

// JSON renders the story as indented JSON using the canonical field names.
func JSON(st *story.Story) ([]byte, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal story: %w", err)
	}
	return data, nil
}
