// Package api serves scraping, the story library and the scrape history
// over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/ffscrape/discovery"
	"github.com/pevans/ffscrape/export"
	"github.com/pevans/ffscrape/history"
	"github.com/pevans/ffscrape/ingest"
	"github.com/pevans/ffscrape/library"
	"github.com/pevans/ffscrape/sites"
)

// MaxBatch is the most URLs one scrape request may carry.
const MaxBatch = 50

// Server represents the HTTP API server.
type Server struct {
	ingest   *ingest.Service
	library  *library.Library
	history  *history.Store
	registry *sites.Registry
	fetch    discovery.Fetcher
}

// NewServer creates a new API server.
func NewServer(
	svc *ingest.Service,
	lib *library.Library,
	hist *history.Store,
	registry *sites.Registry,
	fetch discovery.Fetcher,
) *Server {
	return &Server{
		ingest:   svc,
		library:  lib,
		history:  hist,
		registry: registry,
		fetch:    fetch,
	}
}

// SetupRouter configures the Gin router with all API routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	v1 := router.Group("/api/v1")
	v1.POST("/scrapes", s.HandleScrape)
	v1.GET("/scrapes", s.HandleListScrapes)
	v1.GET("/scrapes/:id", s.HandleGetScrape)
	v1.GET("/stories", s.HandleListStories)
	v1.GET("/stories/:id", s.HandleGetStory)
	v1.GET("/stories/:id/markdown", s.HandleStoryMarkdown)
	v1.DELETE("/stories/:id", s.HandleDeleteStory)
	v1.GET("/sites", s.HandleListSites)
	v1.POST("/discover", s.HandleDiscover)

	return router
}

// ScrapeRequest is the body of POST /api/v1/scrapes.
type ScrapeRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

// ScrapeOutcome reports what happened to one requested URL.
type ScrapeOutcome struct {
	URL          string     `json:"url"`
	CorrectedURL string     `json:"corrected_url,omitempty"`
	Site         string     `json:"site,omitempty"`
	Outcome      string     `json:"outcome"`
	Error        string     `json:"error,omitempty"`
	StoryID      *uuid.UUID `json:"story_id,omitempty"`
	RecordID     *uuid.UUID `json:"record_id,omitempty"`
	Title        string     `json:"title,omitempty"`
	WordCount    int        `json:"word_count"`
	ChapterCount int        `json:"chapter_count"`
}

// ScrapeResponse is the response for POST /api/v1/scrapes.
type ScrapeResponse struct {
	Outcomes []ScrapeOutcome `json:"outcomes"`
	Done     int             `json:"done"`
	NotFound int             `json:"not_found"`
	Failed   int             `json:"failed"`
}

// ListScrapesResponse is the response for GET /api/v1/scrapes.
type ListScrapesResponse struct {
	Scrapes []history.Entry `json:"scrapes"`
	Total   int             `json:"total"`
}

// StorySummary describes a library story without its chapters.
type StorySummary struct {
	ID           uuid.UUID `json:"id"`
	SavedAt      string    `json:"saved_at"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	URL          string    `json:"url"`
	Domain       string    `json:"domain"`
	Status       string    `json:"status,omitempty"`
	WordCount    int       `json:"word_count"`
	ChapterCount int       `json:"chapter_count"`
}

// ListStoriesResponse is the response for GET /api/v1/stories.
type ListStoriesResponse struct {
	Stories []StorySummary `json:"stories"`
	Total   int            `json:"total"`
	Errors  []string       `json:"errors,omitempty"`
}

// SiteInfo describes one registered site.
type SiteInfo struct {
	Name string `json:"name"`
}

// DiscoverRequest is the body of POST /api/v1/discover.
type DiscoverRequest struct {
	FeedURL string `json:"feed_url" binding:"required"`
}

// DiscoverResponse lists the story URLs found in a feed.
type DiscoverResponse struct {
	URLs []string `json:"urls"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *Server) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound), errors.Is(err, history.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid ID"))
		return uuid.Nil, false
	}
	return id, true
}

// HandleScrape handles POST /api/v1/scrapes. The scrape runs before the
// response is written.
func (s *Server) HandleScrape(c *gin.Context) {
	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}
	if len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", "urls must not be empty"))
		return
	}
	if len(req.URLs) > MaxBatch {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error",
			"at most "+strconv.Itoa(MaxBatch)+" urls per request"))
		return
	}

	outcomes := s.ingest.Ingest(c.Request.Context(), req.URLs)

	resp := ScrapeResponse{Outcomes: make([]ScrapeOutcome, len(outcomes))}
	for i, out := range outcomes {
		resp.Outcomes[i] = toScrapeOutcome(out)
		switch out.Outcome() {
		case "done":
			resp.Done++
		case "not_found":
			resp.NotFound++
		default:
			resp.Failed++
		}
	}

	c.JSON(http.StatusOK, resp)
}

func toScrapeOutcome(out ingest.Outcome) ScrapeOutcome {
	o := ScrapeOutcome{
		URL:          out.URL,
		CorrectedURL: out.CorrectedURL,
		Site:         out.Site,
		Outcome:      out.Outcome(),
		StoryID:      out.StoryID,
	}
	if out.RecordID != uuid.Nil {
		id := out.RecordID
		o.RecordID = &id
	}
	switch {
	case out.Err != nil:
		o.Error = out.Err.Error()
	case out.StoreErr != nil:
		o.Error = out.StoreErr.Error()
	}
	if out.Story != nil {
		o.Title = out.Story.Title
		o.WordCount = out.Story.WordCount()
		o.ChapterCount = out.Story.ChapterCount()
	}
	return o
}

// HandleListScrapes handles GET /api/v1/scrapes.
func (s *Server) HandleListScrapes(c *gin.Context) {
	filter := history.Filter{
		Outcome: c.Query("outcome"),
		Site:    c.Query("site"),
	}

	switch filter.Outcome {
	case "", "done", "not_found", "failed":
	default:
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", history.ErrInvalidOutcome.Error()))
		return
	}

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResponse("validation_error", "Invalid "+name))
			return
		}
		*dst = n
	}

	entries, err := s.history.List(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListScrapesResponse{
		Scrapes: entries,
		Total:   len(entries),
	})
}

// HandleGetScrape handles GET /api/v1/scrapes/{id}.
func (s *Server) HandleGetScrape(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	entry, err := s.history.Get(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// HandleListStories handles GET /api/v1/stories.
func (s *Server) HandleListStories(c *gin.Context) {
	result, err := s.library.List()
	if err != nil {
		s.handleError(c, err)
		return
	}

	resp := ListStoriesResponse{
		Stories: make([]StorySummary, 0, len(result.Entries)),
		Total:   len(result.Entries),
	}
	for _, entry := range result.Entries {
		st := entry.Story
		resp.Stories = append(resp.Stories, StorySummary{
			ID:           entry.ID,
			SavedAt:      entry.SavedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Title:        st.Title,
			Author:       st.Author,
			URL:          st.URL,
			Domain:       st.Domain,
			Status:       st.Status,
			WordCount:    st.WordCount(),
			ChapterCount: st.ChapterCount(),
		})
	}
	for _, readErr := range result.Errors {
		resp.Errors = append(resp.Errors, readErr.Error())
	}

	c.JSON(http.StatusOK, resp)
}

// HandleGetStory handles GET /api/v1/stories/{id}.
func (s *Server) HandleGetStory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	entry, err := s.library.Get(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// HandleStoryMarkdown handles GET /api/v1/stories/{id}/markdown.
func (s *Server) HandleStoryMarkdown(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	entry, err := s.library.Get(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	md, err := export.Markdown(entry.Story)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

// HandleDeleteStory handles DELETE /api/v1/stories/{id}.
func (s *Server) HandleDeleteStory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := s.library.Delete(id); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleListSites handles GET /api/v1/sites.
func (s *Server) HandleListSites(c *gin.Context) {
	list := []SiteInfo{}
	for _, site := range s.registry.Sites() {
		list = append(list, SiteInfo{Name: site.Name()})
	}

	c.JSON(http.StatusOK, gin.H{"sites": list})
}

// HandleDiscover handles POST /api/v1/discover.
func (s *Server) HandleDiscover(c *gin.Context) {
	var req DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	urls, err := discovery.FeedStoryURLs(c.Request.Context(), s.fetch, req.FeedURL, s.registry)
	if err != nil {
		c.JSON(http.StatusBadGateway, errorResponse("upstream_error", err.Error()))
		return
	}

	c.JSON(http.StatusOK, DiscoverResponse{URLs: urls})
}
