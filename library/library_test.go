package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/pevans/ffscrape/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a library in a temp directory
func createTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := New(t.TempDir())
	require.NoError(t, err)
	return lib
}

// Test helper: create a sample story for testing
func createTestStory(title string) *story.Story {
	published := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	st := story.New("https://www.fanfiction.net/s/555/1")
	st.Domain = "Fanfiction.net"
	st.Title = title
	st.SetAuthor("Some Author", "https://www.fanfiction.net/u/99/")
	st.Status = "WIP"
	st.Rating = "T"
	st.Published = &published
	st.Updated = &updated
	st.AddUniverse("Harry Potter")
	st.AddUniverse("Naruto")
	st.AddCharacter("Hermione G.")
	st.AddPairing([]string{"Hermione G.", "Kakashi H."})
	st.AddChapter(story.Chapter{Name: "1. Arrival", WordCount: 2, ProcessedBody: "<p>Hermione blinked.</p>"})
	st.AddChapter(story.Chapter{Name: "2. Departure", WordCount: 5, ProcessedBody: "<p>It was time to go.</p>"})
	return st
}

// TestNew_CreatesNestedDirectories verifies the storage directory is created
func TestNew_CreatesNestedDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deeply", "nested", "library")

	lib, err := New(dir)
	require.NoError(t, err)
	require.NotNil(t, lib)

	stat, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

// TestLibrary_AddGet verifies a saved story reads back unchanged
func TestLibrary_AddGet(t *testing.T) {
	lib := createTestLibrary(t)
	st := createTestStory("Two Worlds")

	entry, err := lib.Add(st)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.SavedAt.IsZero())

	got, err := lib.Get(entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, entry.ID, got.ID)
	if diff := cmp.Diff(st, got.Story); diff != "" {
		t.Errorf("story changed after a round trip (-want +got):\n%s", diff)
	}
	assert.Equal(t, 7, got.Story.WordCount())
}

// TestLibrary_Add_FilePermissions verifies files are owner-only
func TestLibrary_Add_FilePermissions(t *testing.T) {
	lib := createTestLibrary(t)

	entry, err := lib.Add(createTestStory("Private"))
	require.NoError(t, err)

	stat, err := os.Stat(lib.path(entry.ID))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

// TestLibrary_Add_Nil verifies nil stories are rejected
func TestLibrary_Add_Nil(t *testing.T) {
	lib := createTestLibrary(t)

	_, err := lib.Add(nil)
	assert.Error(t, err)
}

// TestLibrary_Get_NotFound verifies unknown IDs
func TestLibrary_Get_NotFound(t *testing.T) {
	lib := createTestLibrary(t)

	got, err := lib.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, got)
}

// TestLibrary_List verifies listing order, newest first
func TestLibrary_List(t *testing.T) {
	lib := createTestLibrary(t)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lib.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	_, err := lib.Add(createTestStory("First"))
	require.NoError(t, err)
	_, err = lib.Add(createTestStory("Second"))
	require.NoError(t, err)
	_, err = lib.Add(createTestStory("Third"))
	require.NoError(t, err)

	result, err := lib.List()
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Entries, 3)

	var titles []string
	for _, entry := range result.Entries {
		titles = append(titles, entry.Story.Title)
	}
	assert.Equal(t, []string{"Third", "Second", "First"}, titles)
}

// TestLibrary_List_CollectsErrors verifies corrupted files do not hide the
// rest of the library
func TestLibrary_List_CollectsErrors(t *testing.T) {
	lib := createTestLibrary(t)

	_, err := lib.Add(createTestStory("Good"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(lib.storageDir, "corrupt.json"), []byte("{not json"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(lib.storageDir, "empty.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(lib.storageDir, "notes.txt"), []byte("ignored"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(lib.storageDir, "sub.json"), 0o700))

	result, err := lib.List()
	require.NoError(t, err)

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "Good", result.Entries[0].Story.Title)

	require.Len(t, result.Errors, 2)
	var names []string
	for _, readErr := range result.Errors {
		names = append(names, readErr.Filename)
		assert.Contains(t, readErr.Error(), readErr.Filename)
	}
	assert.ElementsMatch(t, []string{"corrupt.json", "empty.json"}, names)
}

// TestLibrary_List_MissingDirectory verifies total failures are returned
func TestLibrary_List_MissingDirectory(t *testing.T) {
	lib := createTestLibrary(t)
	require.NoError(t, os.RemoveAll(lib.storageDir))

	_, err := lib.List()
	assert.Error(t, err)
}

// TestLibrary_Delete verifies deletion
func TestLibrary_Delete(t *testing.T) {
	lib := createTestLibrary(t)

	entry, err := lib.Add(createTestStory("Doomed"))
	require.NoError(t, err)

	require.NoError(t, lib.Delete(entry.ID))

	_, err = lib.Get(entry.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, lib.Delete(entry.ID), ErrNotFound)
}
