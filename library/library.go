// Package library keeps scraped stories on disk, one JSON file per story.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/ffscrape/story"
)

// ErrNotFound is returned when no story has the requested ID.
var ErrNotFound = errors.New("story not found")

// Entry is a story saved in the library.
type Entry struct {
	ID      uuid.UUID    `json:"id"`
	SavedAt time.Time    `json:"saved_at"`
	Story   *story.Story `json:"story"`
}

// Library represents a collection of stories stored in a directory
type Library struct {
	storageDir string
	now        func() time.Time
}

// ReadError describes a failure to read a single story file.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the results of listing stories, including any
// per-file errors that occurred during the operation.
type ListResult struct {
	Entries []Entry
	Errors  []ReadError
}

// New creates a library in the specified storage directory
func New(storageDir string) (*Library, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(storageDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Library{
		storageDir: storageDir,
		now:        time.Now,
	}, nil
}

func (l *Library) path(id uuid.UUID) string {
	return filepath.Join(l.storageDir, id.String()+".json")
}

// Add saves a story under a new ID. Saving the same story twice creates two
// entries.
func (l *Library) Add(st *story.Story) (Entry, error) {
	if st == nil {
		return Entry{}, fmt.Errorf("failed to save story: story is nil")
	}

	entry := Entry{
		ID:      uuid.New(),
		SavedAt: l.now().UTC(),
		Story:   st,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal story: %w", err)
	}

	// 0600: owner-only read/write
	if err := os.WriteFile(l.path(entry.ID), data, 0o600); err != nil {
		return Entry{}, fmt.Errorf("failed to write story: %w", err)
	}

	return entry, nil
}

// List returns every story in the library, most recently saved first.
// Corrupted files are collected in the result's Errors slice rather than
// failing the whole listing. A non-nil error means the directory itself
// could not be read.
func (l *Library) List() (*ListResult, error) {
	entries, err := os.ReadDir(l.storageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	result := &ListResult{}
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(l.storageDir, dirEntry.Name()))
		if err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: dirEntry.Name(), Err: err})
			continue
		}

		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: dirEntry.Name(), Err: err})
			continue
		}
		if entry.Story == nil {
			result.Errors = append(result.Errors, ReadError{
				Filename: dirEntry.Name(),
				Err:      errors.New("missing story"),
			})
			continue
		}

		result.Entries = append(result.Entries, entry)
	}

	sort.SliceStable(result.Entries, func(i, j int) bool {
		return result.Entries[i].SavedAt.After(result.Entries[j].SavedAt)
	})

	return result, nil
}

// Get retrieves a story by its ID, or ErrNotFound.
func (l *Library) Get(id uuid.UUID) (*Entry, error) {
	data, err := os.ReadFile(l.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read story: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}

	return &entry, nil
}

// Delete removes a story by its ID, or returns ErrNotFound.
func (l *Library) Delete(id uuid.UUID) error {
	if err := os.Remove(l.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}
