// Package server exposes the search and preference APIs over HTTP. Search
// results stream back as NDJSON so clients render records as the backends
// answer instead of waiting for the slowest one.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"saucery/internal/engine"
	"saucery/internal/orchestrator"
	"saucery/internal/prefs"
	"saucery/internal/search"
	"saucery/pkg/types"
)

// Server hosts the HTTP API.
type Server struct {
	echo    *echo.Echo
	search  *search.Service
	prefs   *prefs.Store
	engines []engine.Engine
	logger  *slog.Logger
}

// Options configures a Server.
type Options struct {
	Search  *search.Service
	Prefs   *prefs.Store
	Engines []engine.Engine
	Logger  *slog.Logger
}

// New creates the HTTP server and registers all routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	s := &Server{
		echo:    e,
		search:  opts.Search,
		prefs:   opts.Prefs,
		engines: opts.Engines,
		logger:  logger.With("component", "server"),
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/engines", s.handleEngines)
	e.POST("/api/search", s.handleSearch)
	e.GET("/api/prefs/:chat_id", s.handleGetPrefs)
	e.PUT("/api/prefs/:chat_id", s.handlePutPrefs)
	e.DELETE("/api/prefs/:chat_id", s.handleDeletePrefs)

	return s
}

// Start serves requests on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration", time.Since(start),
			)
			return err
		}
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEngines(c echo.Context) error {
	names := make([]string, 0, len(s.engines))
	for _, e := range s.engines {
		names = append(names, e.Name())
	}
	return c.JSON(http.StatusOK, map[string]any{"engines": names})
}

type searchRequest struct {
	URL       string   `json:"url"`
	Engines   []string `json:"engines,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
	// ChatID attaches the search to a chat: its engine allow-list narrows
	// the fan-out and its outcome counters are updated from the results.
	ChatID *int64 `json:"chat_id,omitempty"`
}

// searchItem is one NDJSON line of a search response.
type searchItem struct {
	Engine     string            `json:"engine"`
	Enrichment *types.Enrichment `json:"enrichment,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (s *Server) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	if req.Threshold != nil && (*req.Threshold < 0 || *req.Threshold > 1) {
		return echo.NewHTTPError(http.StatusBadRequest, "threshold must be within [0, 1]")
	}
	if req.Limit != nil && *req.Limit < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be at least 1")
	}

	ctx := c.Request().Context()

	engines := req.Engines
	if req.ChatID != nil {
		p, err := s.prefs.Get(ctx, *req.ChatID)
		if err != nil {
			s.logger.Error("prefs load failed", "chat", *req.ChatID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to load preferences")
		}
		var ok bool
		engines, ok = restrictEngines(req.Engines, p.AutoSearchEngines)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "no requested engine is enabled for this chat")
		}
	}

	results := s.search.Search(ctx, req.URL, orchestrator.Options{
		Engines:   engines,
		Threshold: req.Threshold,
		Limit:     req.Limit,
	})

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.WriteHeader(http.StatusOK)

	produced := make(map[string]bool)
	archived := false
	gotAny := false

	enc := json.NewEncoder(resp)
	for r := range results {
		if r.Enrichment != nil {
			gotAny = true
			if r.Engine == search.ArchiveEngine {
				archived = true
			} else {
				produced[r.Engine] = true
			}
		}
		item := searchItem{Engine: r.Engine, Enrichment: r.Enrichment}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		if err := enc.Encode(item); err != nil {
			// The client went away; the ranged channel drains on its own
			// once the request context is cancelled.
			return nil
		}
		resp.Flush()
	}

	if req.ChatID != nil {
		s.recordSearchOutcome(ctx, *req.ChatID, engines, produced, gotAny, archived)
	}
	return nil
}

// restrictEngines narrows the requested engines to the chat's allow-list.
// An empty allow-list permits everything; an empty request means the full
// allow-list. The second return is false when nothing survives.
func restrictEngines(requested, allowed []string) ([]string, bool) {
	if len(allowed) == 0 {
		return requested, true
	}
	if len(requested) == 0 {
		return allowed, true
	}
	allow := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allow[name] = true
	}
	var kept []string
	for _, name := range requested {
		if allow[name] {
			kept = append(kept, name)
		}
	}
	return kept, len(kept) > 0
}

// recordSearchOutcome updates the chat's counters from one finished search:
// the consecutive-failure counter tracks whether anything came back at all,
// and each engine that ran gets its consecutive-empty counter bumped or
// cleared. Archive hits leave the engine counters alone since no live
// engine ran. Counter trouble is logged, never surfaced to the client.
func (s *Server) recordSearchOutcome(ctx context.Context, chatID int64, engines []string, produced map[string]bool, gotAny, archived bool) {
	if gotAny {
		if err := s.prefs.ResetFailures(ctx, chatID); err != nil {
			s.logger.Warn("failed to reset failure counter", "chat", chatID, "error", err)
		}
	} else {
		if _, err := s.prefs.RecordFailure(ctx, chatID); err != nil {
			s.logger.Warn("failed to record failure", "chat", chatID, "error", err)
		}
	}
	if archived {
		return
	}

	for _, name := range s.selectedEngineNames(engines) {
		var err error
		if produced[name] {
			err = s.prefs.ResetEngineEmpty(ctx, chatID, name)
		} else {
			_, err = s.prefs.RecordEngineEmpty(ctx, chatID, name)
		}
		if err != nil {
			s.logger.Warn("failed to update engine counter", "chat", chatID, "engine", name, "error", err)
		}
	}
}

// selectedEngineNames resolves which configured engines a request fanned out
// to. An empty selection means all of them.
func (s *Server) selectedEngineNames(selection []string) []string {
	names := make([]string, 0, len(s.engines))
	if len(selection) == 0 {
		for _, e := range s.engines {
			names = append(names, e.Name())
		}
		return names
	}
	configured := make(map[string]bool, len(s.engines))
	for _, e := range s.engines {
		configured[e.Name()] = true
	}
	for _, name := range selection {
		if configured[name] {
			names = append(names, name)
		}
	}
	return names
}

func chatID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "chat_id must be an integer")
	}
	return id, nil
}

func (s *Server) handleGetPrefs(c echo.Context) error {
	id, err := chatID(c)
	if err != nil {
		return err
	}
	p, err := s.prefs.Get(c.Request().Context(), id)
	if err != nil {
		s.logger.Error("prefs load failed", "chat", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load preferences")
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handlePutPrefs(c echo.Context) error {
	id, err := chatID(c)
	if err != nil {
		return err
	}
	var p prefs.Prefs
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	p.ChatID = id

	if err := s.prefs.Put(c.Request().Context(), &p); err != nil {
		s.logger.Error("prefs store failed", "chat", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store preferences")
	}
	return c.JSON(http.StatusOK, &p)
}

func (s *Server) handleDeletePrefs(c echo.Context) error {
	id, err := chatID(c)
	if err != nil {
		return err
	}
	if err := s.prefs.Delete(c.Request().Context(), id); err != nil {
		s.logger.Error("prefs delete failed", "chat", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete preferences")
	}
	return c.NoContent(http.StatusNoContent)
}
