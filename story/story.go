// Package story holds the canonical record produced by a scrape. A Story is a
// write-once accumulator: adapters append to it while scraping and nothing
// mutates it afterwards.
package story

import (
	"encoding/json"
	"time"
)

// Chapter is one chapter of a story, in on-site reading order.
type Chapter struct {
	Name string `json:"name"`
	// WordCount is counted from the visible chapter text, not taken from
	// whatever the site reports.
	WordCount     int    `json:"word_count"`
	ProcessedBody string `json:"processed_body"`
	RawBody       string `json:"raw_body"`
}

// Story is the normalized record of one scraped story.
type Story struct {
	URL          string     `json:"url"`
	Domain       string     `json:"domain"`
	Title        string     `json:"title"`
	Author       string     `json:"author"`
	AuthorURL    string     `json:"author_url"`
	Status       string     `json:"status"`
	Published    *time.Time `json:"published"`
	Updated      *time.Time `json:"updated"`
	Summary      string     `json:"summary"`
	Rating       string     `json:"rating"`
	RawIndexPage string     `json:"raw_index_page"`
	Universe     []string   `json:"universe"`
	Categories   []string   `json:"categories"`
	Genres       []string   `json:"genres"`
	Characters   []string   `json:"characters"`
	Pairings     [][]string `json:"pairings"`
	Warnings     []string   `json:"warnings"`
	Chapters     []Chapter  `json:"chapters"`
}

// New creates an empty story for the given origin URL.
func New(url string) *Story {
	return &Story{
		URL:        url,
		Universe:   []string{},
		Categories: []string{},
		Genres:     []string{},
		Characters: []string{},
		Pairings:   [][]string{},
		Warnings:   []string{},
		Chapters:   []Chapter{},
	}
}

// SetAuthor records the author and a link to their profile.
func (s *Story) SetAuthor(name, url string) {
	s.Author = name
	s.AuthorURL = url
}

// The Add methods below ignore empty values, which is how the standardize
// package signals that a value should be dropped.

func (s *Story) AddUniverse(universe string) {
	if universe != "" {
		s.Universe = append(s.Universe, universe)
	}
}

func (s *Story) AddCategory(category string) {
	if category != "" {
		s.Categories = append(s.Categories, category)
	}
}

func (s *Story) AddGenre(genre string) {
	if genre != "" {
		s.Genres = append(s.Genres, genre)
	}
}

func (s *Story) AddCharacter(character string) {
	if character != "" {
		s.Characters = append(s.Characters, character)
	}
}

func (s *Story) AddWarning(warning string) {
	if warning != "" {
		s.Warnings = append(s.Warnings, warning)
	}
}

// AddPairing appends the non-empty names of a pairing. A pairing with no
// names left is not recorded.
func (s *Story) AddPairing(names []string) {
	pairing := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			pairing = append(pairing, name)
		}
	}
	if len(pairing) == 0 {
		return
	}
	s.Pairings = append(s.Pairings, pairing)
}

// AddChapter appends a chapter after the ones already recorded.
func (s *Story) AddChapter(chapter Chapter) {
	s.Chapters = append(s.Chapters, chapter)
}

// WordCount returns the total word count over all chapters.
func (s *Story) WordCount() int {
	count := 0
	for _, chapter := range s.Chapters {
		count += chapter.WordCount
	}
	return count
}

// ChapterCount returns the number of recorded chapters.
func (s *Story) ChapterCount() int {
	return len(s.Chapters)
}

// MarshalJSON adds the derived word_count and chapter_count fields.
func (s *Story) MarshalJSON() ([]byte, error) {
	type plain Story
	return json.Marshal(struct {
		*plain
		WordCount    int `json:"word_count"`
		ChapterCount int `json:"chapter_count"`
	}{
		plain:        (*plain)(s),
		WordCount:    s.WordCount(),
		ChapterCount: s.ChapterCount(),
	})
}
