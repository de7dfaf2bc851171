// Package web provides the HTTP server for template management and the
// upload workflow: upload a CSV, map its columns, validate, standardize and
// download or send the result.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/csvstandard/internal/config"
	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/sheets"
	mw "github.com/JonMunkholm/csvstandard/internal/web/middleware"
)

// SheetDirectory browses and creates the caller's spreadsheets so a template
// can be connected to one.
type SheetDirectory interface {
	ListSpreadsheets(ctx context.Context, creds core.SheetCredentials) ([]sheets.Spreadsheet, error)
	CreateSpreadsheet(ctx context.Context, creds core.SheetCredentials, title string) (sheets.Spreadsheet, error)
	SheetNames(ctx context.Context, creds core.SheetCredentials, spreadsheetID string) ([]string, error)
}

// Server is the HTTP server for the CSV standardizer.
type Server struct {
	cfg     *config.Config
	service *core.Service
	store   core.TemplateStore
	sheets  SheetDirectory
	router  *chi.Mux
	server  *http.Server

	limiters []*mw.RateLimiter
}

// NewServer creates a Server. dir may be nil, which disables the
// /api/sheets routes.
func NewServer(cfg *config.Config, service *core.Service, store core.TemplateStore, dir SheetDirectory) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		store:   store,
		sheets:  dir,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(requestMetadata)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

// rateLimit builds a per-IP limiter whose cleanup goroutine stops on Shutdown.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	rl := mw.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl.Handler
}

// setupRoutes configures all HTTP routes. Uploads get their own timeout and
// rate limit; every other route shares the request timeout.
func (s *Server) setupRoutes() {
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Upload.Timeout))
		if s.cfg.Rate.Enabled {
			r.Use(s.rateLimit(s.cfg.Rate.UploadLimit))
		}
		r.Post("/api/uploads/{id}", s.handleUpload)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

		r.Get("/health", s.handleHealth)
		r.Get("/t/{ref}", s.handleUploadPage)

		// Templates: reads are public, writes may require an API key.
		r.Get("/api/templates", s.handleListTemplates)
		r.Get("/api/templates/{ref}", s.handleGetTemplate)
		r.Get("/api/templates/{ref}/uploads", s.handleTemplateUploads)
		r.Group(func(r chi.Router) {
			r.Use(mw.APIKeyAuth(&s.cfg.Security))
			r.Post("/api/templates", s.handleCreateTemplate)
			r.Put("/api/templates/{ref}", s.handleUpdateTemplate)
			r.Delete("/api/templates/{ref}", s.handleDeleteTemplate)
			r.Put("/api/templates/{ref}/destination", s.handleConnectSheet)
			r.Delete("/api/templates/{ref}/destination", s.handleDisconnectSheet)
		})

		// Upload sessions
		r.Get("/api/uploads/{id}", s.handleGetSession)
		r.Delete("/api/uploads/{id}", s.handleResetSession)
		r.Put("/api/uploads/{id}/mappings", s.handleReplaceMappings)
		r.Patch("/api/uploads/{id}/mappings", s.handleUpdateMapping)
		r.Post("/api/uploads/{id}/validate", s.handleValidate)
		r.Post("/api/uploads/{id}/standardize", s.handleStandardize)
		r.Get("/api/uploads/{id}/download", s.handleDownload)
		r.Post("/api/uploads/{id}/append", s.handleAppend)

		// Spreadsheet helpers for connecting a template
		r.Get("/api/sheets/spreadsheets", s.handleListSpreadsheets)
		r.Post("/api/sheets/spreadsheets", s.handleCreateSpreadsheet)
		r.Get("/api/sheets/spreadsheets/{spreadsheetID}/tabs", s.handleSheetTabs)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and the rate limiter goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness plus session and upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":         "ok",
		"activeSessions": s.service.ActiveSessions(),
		"uploads":        s.service.LimiterStatus(),
	})
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
