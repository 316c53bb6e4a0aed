package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/ffscrape/history"
	"github.com/pevans/ffscrape/ingest"
	"github.com/pevans/ffscrape/library"
	"github.com/pevans/ffscrape/scrape"
	"github.com/pevans/ffscrape/sites"
	"github.com/pevans/ffscrape/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSite accepts test.local URLs.
type testSite struct{}

func (testSite) Name() string              { return "Test" }
func (testSite) SetDomain(st *story.Story) { st.Domain = "Test" }
func (testSite) CanHandle(url string) bool { return strings.Contains(url, "test.local/") }
func (testSite) CorrectURL(url string) (string, error) {
	if strings.HasSuffix(url, "/bad") {
		return "", &sites.URLError{URL: url, Reason: sites.ReasonUnknownFormat}
	}
	return url, nil
}
func (testSite) CheckStoryExists(doc *goquery.Document) bool {
	return doc.Find("#gone").Length() == 0
}
func (testSite) RecordStoryMetadata(doc *goquery.Document, st *story.Story, _ string) ([]sites.ChapterRef, error) {
	st.Title = doc.Find("title").Text()
	st.SetAuthor("Someone", "")
	return []sites.ChapterRef{{Name: "Opening", Link: "1"}}, nil
}
func (testSite) RecordStoryChapters(_ context.Context, _ sites.PageLoader, st *story.Story, _ string, chapters []sites.ChapterRef) error {
	for _, ch := range chapters {
		st.AddChapter(story.Chapter{Name: ch.Name, WordCount: 2, ProcessedBody: "<p>Hello there</p>"})
	}
	return nil
}

type pageLoader struct{}

func (pageLoader) Load(_ context.Context, url string) (*goquery.Document, error) {
	body := "<html><head><title>Title " + url + "</title></head></html>"
	if strings.HasSuffix(url, "/gone") {
		body = `<html><body><div id="gone"></div></body></html>`
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// feedFetcher serves feed bodies by URL.
type feedFetcher map[string]string

func (f feedFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Feed</title>
<item><title>One</title><link>http://test.local/1</link></item>
<item><title>Elsewhere</title><link>http://other.local/2</link></item>
<item><title>Three</title><link>http://test.local/3</link></item>
</channel></rss>`

type testEnv struct {
	router  *gin.Engine
	library *library.Library
	history *history.Store
}

// Test helper: create a router over temporary stores
func setupTestRouter(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()

	lib, err := library.New(filepath.Join(dir, "library"))
	require.NoError(t, err)
	hist, err := history.New(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	registry := sites.NewRegistry(testSite{})
	scraper := scrape.New(registry, pageLoader{}, nil)
	svc := ingest.New(scraper, lib, hist, 2, nil)
	fetch := feedFetcher{"http://feeds.local/rss": testFeed}

	server := NewServer(svc, lib, hist, registry, fetch)
	return testEnv{router: server.SetupRouter(), library: lib, history: hist}
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

// Test helper: store a story directly in the library
func addStory(t *testing.T, lib *library.Library, title string) uuid.UUID {
	t.Helper()
	st := story.New("http://test.local/" + title)
	st.Title = title
	st.Domain = "Test"
	st.SetAuthor("Someone", "http://test.local/u/1")
	st.AddChapter(story.Chapter{Name: "Opening", WordCount: 2, ProcessedBody: "<p>Hello <em>there</em></p>"})
	entry, err := lib.Add(st)
	require.NoError(t, err)
	return entry.ID
}

// TestHandleScrape verifies a batch is scraped, stored and recorded
func TestHandleScrape(t *testing.T) {
	env := setupTestRouter(t)

	w := doRequest(env.router, http.MethodPost, "/api/v1/scrapes",
		`{"urls": ["http://test.local/1", "http://test.local/gone", "http://test.local/bad", "http://other.local/x"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Outcomes, 4)
	assert.Equal(t, 1, resp.Done)
	assert.Equal(t, 1, resp.NotFound)
	assert.Equal(t, 2, resp.Failed)

	done := resp.Outcomes[0]
	assert.Equal(t, "done", done.Outcome)
	assert.Equal(t, "Title http://test.local/1", done.Title)
	assert.Equal(t, 2, done.WordCount)
	assert.Equal(t, 1, done.ChapterCount)
	require.NotNil(t, done.StoryID)
	require.NotNil(t, done.RecordID)

	_, err := env.library.Get(*done.StoryID)
	assert.NoError(t, err)

	assert.Equal(t, "not_found", resp.Outcomes[1].Outcome)
	assert.Nil(t, resp.Outcomes[1].StoryID)
	assert.Equal(t, sites.ReasonUnknownFormat, resp.Outcomes[2].Error)
	assert.Equal(t, sites.ErrNoSite.Error(), resp.Outcomes[3].Error)

	entries, err := env.history.List(history.Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

// TestHandleScrape_Validation verifies malformed requests are rejected
func TestHandleScrape_Validation(t *testing.T) {
	env := setupTestRouter(t)

	many := make([]string, MaxBatch+1)
	for i := range many {
		many[i] = "http://test.local/x"
	}
	tooMany, err := json.Marshal(ScrapeRequest{URLs: many})
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"urls": `},
		{"missing urls", `{}`},
		{"empty urls", `{"urls": []}`},
		{"too many urls", string(tooMany)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(env.router, http.MethodPost, "/api/v1/scrapes", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation_error", decodeError(t, w))
		})
	}

	entries, err := env.history.List(history.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected requests should not scrape")
}

// TestHandleListScrapes verifies history filtering over HTTP
func TestHandleListScrapes(t *testing.T) {
	env := setupTestRouter(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, outcome := range []string{"done", "failed", "done", "not_found"} {
		_, err := env.history.Record(history.Entry{
			URL:       "http://test.local/" + outcome,
			Site:      "Test",
			Outcome:   outcome,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		query string
		total int
	}{
		{"all", "", 4},
		{"done", "?outcome=done", 2},
		{"site", "?site=Test", 4},
		{"other site", "?site=Other", 0},
		{"limit", "?limit=3", 3},
		{"offset", "?offset=3", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(env.router, http.MethodGet, "/api/v1/scrapes"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code)

			var resp ListScrapesResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.total, resp.Total)
			assert.Len(t, resp.Scrapes, tt.total)
		})
	}

	w := doRequest(env.router, http.MethodGet, "/api/v1/scrapes", "")
	var resp ListScrapesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Scrapes[0].Outcome, "newest first")
}

// TestHandleListScrapes_InvalidQuery verifies bad query parameters
func TestHandleListScrapes_InvalidQuery(t *testing.T) {
	env := setupTestRouter(t)

	for _, query := range []string{"?outcome=maybe", "?limit=x", "?offset=-1"} {
		w := doRequest(env.router, http.MethodGet, "/api/v1/scrapes"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		assert.Equal(t, "validation_error", decodeError(t, w), query)
	}
}

// TestHandleGetScrape verifies single record lookup
func TestHandleGetScrape(t *testing.T) {
	env := setupTestRouter(t)

	rec, err := env.history.Record(history.Entry{URL: "http://test.local/1", Outcome: "done"})
	require.NoError(t, err)

	w := doRequest(env.router, http.MethodGet, "/api/v1/scrapes/"+rec.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	var got history.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "http://test.local/1", got.URL)

	w = doRequest(env.router, http.MethodGet, "/api/v1/scrapes/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w))

	w = doRequest(env.router, http.MethodGet, "/api/v1/scrapes/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w))
}

// TestHandleListStories verifies library summaries
func TestHandleListStories(t *testing.T) {
	env := setupTestRouter(t)

	w := doRequest(env.router, http.MethodGet, "/api/v1/stories", "")
	require.Equal(t, http.StatusOK, w.Code)
	var empty ListStoriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.Equal(t, 0, empty.Total)
	assert.NotNil(t, empty.Stories)

	id := addStory(t, env.library, "First")

	w = doRequest(env.router, http.MethodGet, "/api/v1/stories", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListStoriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, id, resp.Stories[0].ID)
	assert.Equal(t, "First", resp.Stories[0].Title)
	assert.Equal(t, "Someone", resp.Stories[0].Author)
	assert.Equal(t, 2, resp.Stories[0].WordCount)
	assert.Equal(t, 1, resp.Stories[0].ChapterCount)
}

// TestHandleGetStory verifies a full story is returned
func TestHandleGetStory(t *testing.T) {
	env := setupTestRouter(t)
	id := addStory(t, env.library, "Full")

	w := doRequest(env.router, http.MethodGet, "/api/v1/stories/"+id.String(), "")
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, id.String(), got["id"])

	st, ok := got["story"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Full", st["title"])
	assert.EqualValues(t, 2, st["word_count"])

	w = doRequest(env.router, http.MethodGet, "/api/v1/stories/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleStoryMarkdown verifies the Markdown rendering endpoint
func TestHandleStoryMarkdown(t *testing.T) {
	env := setupTestRouter(t)
	id := addStory(t, env.library, "Rendered")

	w := doRequest(env.router, http.MethodGet, "/api/v1/stories/"+id.String()+"/markdown", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")

	body := w.Body.String()
	assert.Contains(t, body, "# Rendered")
	assert.Contains(t, body, "## Opening")
	assert.Contains(t, body, "Hello *there*")
}

// TestHandleDeleteStory verifies deletion and the not found case
func TestHandleDeleteStory(t *testing.T) {
	env := setupTestRouter(t)
	id := addStory(t, env.library, "Doomed")

	w := doRequest(env.router, http.MethodDelete, "/api/v1/stories/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := env.library.Get(id)
	assert.ErrorIs(t, err, library.ErrNotFound)

	w = doRequest(env.router, http.MethodDelete, "/api/v1/stories/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleListSites verifies registered sites are listed
func TestHandleListSites(t *testing.T) {
	env := setupTestRouter(t)

	w := doRequest(env.router, http.MethodGet, "/api/v1/sites", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sites []SiteInfo `json:"sites"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []SiteInfo{{Name: "Test"}}, resp.Sites)
}

// TestHandleDiscover verifies feed links are filtered to supported sites
func TestHandleDiscover(t *testing.T) {
	env := setupTestRouter(t)

	w := doRequest(env.router, http.MethodPost, "/api/v1/discover", `{"feed_url": "http://feeds.local/rss"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp DiscoverResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"http://test.local/1", "http://test.local/3"}, resp.URLs)

	w = doRequest(env.router, http.MethodPost, "/api/v1/discover", `{"feed_url": "http://feeds.local/missing"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream_error", decodeError(t, w))

	w = doRequest(env.router, http.MethodPost, "/api/v1/discover", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestCORS verifies CORS headers and preflight handling
func TestCORS(t *testing.T) {
	env := setupTestRouter(t)

	w := doRequest(env.router, http.MethodOptions, "/api/v1/stories", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = doRequest(env.router, http.MethodGet, "/api/v1/sites", "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
