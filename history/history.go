// Package history records the outcome of every scrape attempt in SQLite. It
// is an audit log: nothing reads it to decide whether to scrape.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/ffscrape/scrape"
)

// Custom errors for history operations
var (
	ErrNotFound       = errors.New("scrape record not found")
	ErrInvalidOutcome = errors.New("outcome must be done, not_found, or failed")
	ErrMissingURL     = errors.New("url is required")
)

// Store manages scrape records using SQLite.
type Store struct {
	db *sql.DB
}

// Entry is one scrape attempt.
type Entry struct {
	ID           uuid.UUID  `json:"id"`
	URL          string     `json:"url"`
	CorrectedURL string     `json:"corrected_url,omitempty"`
	Site         string     `json:"site,omitempty"`
	Outcome      string     `json:"outcome"`
	Error        string     `json:"error,omitempty"`
	StoryID      *uuid.UUID `json:"story_id,omitempty"`
	Title        string     `json:"title,omitempty"`
	WordCount    int        `json:"word_count"`
	ChapterCount int        `json:"chapter_count"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
}

// Filter represents filtering options for listing records.
type Filter struct {
	Outcome string // Filter by outcome
	Site    string // Filter by site name
	Limit   int    // Pagination limit
	Offset  int    // Pagination offset
}

// FromResult builds a record for a finished scrape. storyID is the library
// ID the story was saved under, if it was saved.
func FromResult(res scrape.Result, storyID *uuid.UUID) Entry {
	entry := Entry{
		URL:          res.URL,
		CorrectedURL: res.CorrectedURL,
		Site:         res.Site,
		Outcome:      res.Outcome(),
		StoryID:      storyID,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if res.Story != nil {
		entry.Title = res.Story.Title
		entry.WordCount = res.Story.WordCount()
		entry.ChapterCount = res.Story.ChapterCount()
	}
	return entry
}

// New opens the store with the given database path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers and keeps ":memory:" databases
	// shared
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the scrapes table if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrapes (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		corrected_url TEXT,
		site TEXT,
		outcome TEXT NOT NULL,
		error TEXT,
		story_id TEXT,
		title TEXT,
		word_count INTEGER DEFAULT 0,
		chapter_count INTEGER DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS scrapes_started_at ON scrapes (started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func validOutcome(outcome string) bool {
	switch scrape.State(outcome) {
	case scrape.Done, scrape.NotFound, scrape.Failed:
		return true
	}
	return false
}

// Record stores a scrape attempt, assigning an ID if it has none.
func (s *Store) Record(entry Entry) (*Entry, error) {
	if entry.URL == "" {
		return nil, ErrMissingURL
	}
	if !validOutcome(entry.Outcome) {
		return nil, ErrInvalidOutcome
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = entry.StartedAt
	}
	entry.StartedAt = entry.StartedAt.Truncate(0)
	entry.FinishedAt = entry.FinishedAt.Truncate(0)

	var storyID *string
	if entry.StoryID != nil {
		id := entry.StoryID.String()
		storyID = &id
	}

	query := `
		INSERT INTO scrapes (
			id, url, corrected_url, site, outcome, error, story_id,
			title, word_count, chapter_count, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		entry.ID.String(),
		entry.URL,
		nullString(entry.CorrectedURL),
		nullString(entry.Site),
		entry.Outcome,
		nullString(entry.Error),
		storyID,
		nullString(entry.Title),
		entry.WordCount,
		entry.ChapterCount,
		formatTime(&entry.StartedAt),
		formatTime(&entry.FinishedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert scrape record: %w", err)
	}

	return &entry, nil
}

const selectColumns = `
	SELECT id, url, corrected_url, site, outcome, error, story_id,
	       title, word_count, chapter_count, started_at, finished_at
	FROM scrapes
`

// Get retrieves a record by ID.
func (s *Store) Get(id uuid.UUID) (*Entry, error) {
	row := s.db.QueryRow(selectColumns+" WHERE id = ?", id.String())

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scrape record: %w", err)
	}
	return entry, nil
}

// List lists records, newest first, with optional filtering.
func (s *Store) List(filter Filter) ([]Entry, error) {
	query := selectColumns

	var whereClauses []string
	var args []any

	if filter.Outcome != "" {
		whereClauses = append(whereClauses, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if filter.Site != "" {
		whereClauses = append(whereClauses, "site = ?")
		args = append(args, filter.Site)
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY started_at DESC, rowid DESC"

	// SQLite needs a LIMIT before it accepts an OFFSET
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrape records: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrape record: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scrape records: %w", err)
	}

	return entries, nil
}

// Counts returns the number of records per outcome.
func (s *Store) Counts() (map[string]int, error) {
	rows, err := s.db.Query("SELECT outcome, COUNT(*) FROM scrapes GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("failed to count scrape records: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var idStr, url, outcome, startedAtStr, finishedAtStr string
	var correctedURL, site, errText, storyIDStr, title sql.NullString
	var wordCount, chapterCount int

	err := row.Scan(
		&idStr, &url, &correctedURL, &site, &outcome, &errText, &storyIDStr,
		&title, &wordCount, &chapterCount, &startedAtStr, &finishedAtStr,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse record ID: %w", err)
	}

	entry := &Entry{
		ID:           id,
		URL:          url,
		CorrectedURL: correctedURL.String,
		Site:         site.String,
		Outcome:      outcome,
		Error:        errText.String,
		Title:        title.String,
		WordCount:    wordCount,
		ChapterCount: chapterCount,
		StartedAt:    parseTime(startedAtStr),
		FinishedAt:   parseTime(finishedAtStr),
	}

	if storyIDStr.Valid {
		storyID, err := uuid.Parse(storyIDStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse story ID: %w", err)
		}
		entry.StoryID = &storyID
	}

	return entry, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Fixed width so stored values sort in time order
	return t.Truncate(0).UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
