package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/david/volunteer-connect/internal/db"
	"github.com/david/volunteer-connect/internal/ingest"
	"github.com/david/volunteer-connect/internal/search"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Server is the thin JSON surface over the search and ingest cores. It does
// no rendering; grouped results go out as-is for a frontend to draw.
type Server struct {
	Echo     *echo.Echo
	Store    *db.Store
	Backend  search.Backend
	Merger   *search.Merger
	Pipeline *ingest.Pipeline
	Registry *ingest.Registry
	Source   ingest.RecordSource
	Log      zerolog.Logger

	adminToken      string
	searchPageLimit int

	// One ingest job at a time; concurrent triggers get a 409.
	jobMu      sync.Mutex
	currentJob *ingestJob
}

type ingestJob struct {
	ID        string                     `json:"id"`
	Status    string                     `json:"status"` // running, completed, failed
	StartedAt time.Time                  `json:"started_at"`
	EndedAt   *time.Time                 `json:"ended_at,omitempty"`
	Stats     map[string]ingest.RunStats `json:"stats,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

type Options struct {
	Pool            *pgxpool.Pool
	Merger          *search.Merger
	Pipeline        *ingest.Pipeline
	Registry        *ingest.Registry
	Source          ingest.RecordSource
	Log             zerolog.Logger
	AdminToken      string
	SearchPageLimit int
}

func NewServer(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	if opts.SearchPageLimit <= 0 {
		opts.SearchPageLimit = 20
	}

	s := &Server{
		Echo:            e,
		Store:           db.NewStore(opts.Pool),
		Backend:         db.NewSearchBackend(opts.Pool),
		Merger:          opts.Merger,
		Pipeline:        opts.Pipeline,
		Registry:        opts.Registry,
		Source:          opts.Source,
		Log:             opts.Log,
		adminToken:      opts.AdminToken,
		searchPageLimit: opts.SearchPageLimit,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/search", s.handleSearch)
	api.GET("/instances", s.handleListInstances)
	api.GET("/providers", s.handleListProviders)

	admin := api.Group("/admin")
	admin.Use(s.adminMiddleware)
	admin.POST("/ingest", s.handleTriggerIngest)
	admin.GET("/ingest/:id", s.handleJobStatus)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.adminToken == "" || c.Request().Header.Get("X-Admin-Token") != s.adminToken {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		return next(c)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// displayEntryJSON mirrors search.DisplayEntry for the wire.
type displayEntryJSON struct {
	Location string `json:"location,omitempty"`
	Date     string `json:"date,omitempty"`
	URL      string `json:"url"`
	Linked   bool   `json:"linked"`
}

type resultJSON struct {
	URL      string   `json:"url"`
	URLSig   string   `json:"url_sig"`
	Title    string   `json:"title"`
	Snippet  string   `json:"snippet"`
	Location string   `json:"location,omitempty"`
	Provider string   `json:"provider,omitempty"`
	ItemID   string   `json:"item_id,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type groupJSON struct {
	Primary     resultJSON         `json:"primary"`
	MergedCount int                `json:"merged_count"`
	Less        []displayEntryJSON `json:"occurrences,omitempty"`
	More        []displayEntryJSON `json:"more_occurrences,omitempty"`
}

type searchResponseJSON struct {
	Query          string      `json:"query"`
	Groups         []groupJSON `json:"groups"`
	EstimatedTotal int         `json:"estimated_total"`
}

func (s *Server) handleSearch(c echo.Context) error {
	query := c.QueryParam("q")
	limit := s.searchPageLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		}
		if n < limit {
			limit = n
		}
	}

	ctx := c.Request().Context()
	hits, estimate, err := s.Backend.Search(ctx, query, limit)
	if err != nil {
		s.Log.Error().Err(err).Str("query", query).Msg("search backend failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "search failed"})
	}

	out := s.Merger.Merge(ctx, hits, estimate)

	resp := searchResponseJSON{
		Query:          query,
		Groups:         make([]groupJSON, 0, len(out.Groups)),
		EstimatedTotal: out.MergedEstimate,
	}
	for _, g := range out.Groups {
		resp.Groups = append(resp.Groups, groupJSON{
			Primary: resultJSON{
				URL:      g.Primary.URL,
				URLSig:   g.Primary.URLSig,
				Title:    g.Primary.Title,
				Snippet:  g.Primary.Snippet,
				Location: g.Primary.Location,
				Provider: g.Primary.Provider,
				ItemID:   g.Primary.ItemID,
				Tags:     g.Primary.Categories,
			},
			MergedCount: len(g.Merged),
			Less:        toDisplayJSON(g.Less),
			More:        toDisplayJSON(g.More),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func toDisplayJSON(entries []search.DisplayEntry) []displayEntryJSON {
	if len(entries) == 0 {
		return nil
	}
	out := make([]displayEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, displayEntryJSON{
			Location: e.Location,
			Date:     e.Date,
			URL:      e.URL,
			Linked:   e.Linked,
		})
	}
	return out
}

func (s *Server) handleListInstances(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
		}
		limit = n
	}

	instances, err := s.Store.ListInstances(c.Request().Context(), c.QueryParam("provider"), limit)
	if err != nil {
		s.Log.Error().Err(err).Msg("instance list failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "listing failed"})
	}
	return c.JSON(http.StatusOK, map[string]any{"instances": instances, "count": len(instances)})
}

type providerJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Format      string `json:"format"`
	Active      bool   `json:"active"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleListProviders(c echo.Context) error {
	providers := make([]providerJSON, 0, len(s.Registry.Providers))
	for _, p := range s.Registry.Providers {
		providers = append(providers, providerJSON{
			ID:          p.ID,
			Name:        p.Name,
			Format:      p.Format,
			Active:      p.Active,
			Description: p.Description,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"providers": providers})
}

// handleTriggerIngest kicks off a full feed run in the background and returns
// the job handle. A second trigger while one is running gets a 409.
func (s *Server) handleTriggerIngest(c echo.Context) error {
	s.jobMu.Lock()
	if s.currentJob != nil && s.currentJob.Status == "running" {
		job := *s.currentJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, job)
	}
	job := &ingestJob{
		ID:        uuid.NewString(),
		Status:    "running",
		StartedAt: time.Now(),
	}
	s.currentJob = job
	s.jobMu.Unlock()

	go s.runIngest(job)

	return c.JSON(http.StatusAccepted, job)
}

func (s *Server) runIngest(job *ingestJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	stats := s.Pipeline.RunAll(ctx, s.Registry, s.Source)

	var failed []string
	for id, st := range stats {
		if st.Failed {
			failed = append(failed, id)
		}
	}
	sort.Strings(failed)

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	now := time.Now()
	job.EndedAt = &now
	job.Stats = stats
	if len(failed) > 0 {
		job.Status = "failed"
		job.Error = "providers failed: " + strings.Join(failed, ", ")
		return
	}
	job.Status = "completed"
}

func (s *Server) handleJobStatus(c echo.Context) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.currentJob == nil || s.currentJob.ID != c.Param("id") {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	return c.JSON(http.StatusOK, s.currentJob)
}
