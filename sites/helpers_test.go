package sites

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// Test helper: parse a fixture from testdata
func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err, "should open fixture %s", name)
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err, "should parse fixture %s", name)
	return doc
}

// fixtureLoader serves fixtures by URL and records every request.
type fixtureLoader struct {
	t         *testing.T
	pages     map[string]string
	requested []string
}

func (l *fixtureLoader) Load(_ context.Context, url string) (*goquery.Document, error) {
	l.requested = append(l.requested, url)
	name, ok := l.pages[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return loadFixture(l.t, name), nil
}

// sleepRecorder replaces time.Sleep in tests.
type sleepRecorder struct {
	pauses []time.Duration
}

func (s *sleepRecorder) Sleep(d time.Duration) {
	s.pauses = append(s.pauses, d)
}

// Test helper: options with a recorded chapter delay
func testOptions(delay time.Duration) (Options, *sleepRecorder) {
	rec := &sleepRecorder{}
	return Options{ChapterDelay: delay, Sleep: rec.Sleep}, rec
}

// Test helper: assert a CorrectURL failure and its reason
func requireURLError(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	urlErr, ok := err.(*URLError)
	require.True(t, ok, "should be a *URLError, got %T", err)
	require.Equal(t, reason, urlErr.Reason)
	require.True(t, strings.Contains(err.Error(), reason))
}
