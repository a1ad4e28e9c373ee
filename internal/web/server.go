// Package web provides the HTTP server and handlers for the workbook UI.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MartinRitsberg/ParemInfo/internal/config"
	"github.com/MartinRitsberg/ParemInfo/internal/core"
	mw "github.com/MartinRitsberg/ParemInfo/internal/web/middleware"
)

// Server is the HTTP server for the workbook application.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	limiter       *RateLimiter
	uploadLimiter *RateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limiter = NewRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.uploadLimiter = NewRateLimiter(cfg.Rate.UploadLimit, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.limiter != nil {
		s.router.Use(s.limiter.Middleware)
	}
}

// setupRoutes configures all HTTP routes. Imports get the upload timeout
// and their own rate limit; the event stream has no timeout. Requests
// that change stored data go through the API key check.
func (s *Server) setupRoutes() {
	s.router.Get("/api/import/events", s.handleImportEvents)

	auth := mw.APIKeyAuth(s.cfg.Security)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Upload.Timeout))
		r.Use(auth)
		if s.uploadLimiter != nil {
			r.Use(s.uploadLimiter.Middleware)
		}
		r.Post("/api/import", s.handleImport)
		r.Post("/api/dataset/csv", s.handleDatasetCSV)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

		// Pages
		r.Get("/", s.handleDashboard)
		r.Get("/editor", s.handleEditor)

		r.Get("/api/health", s.handleHealth)
		r.Get("/api/limits", s.handleLimits)
		r.With(auth).Post("/api/reset", s.handleReset)

		r.Get("/api/import/status", s.handleImportStatus)

		r.Get("/api/sheets", s.handleSheets)
		r.Get("/api/sheets/{name}", s.handleSheet)

		r.Get("/api/dataset", s.handleDataset)
		r.With(auth).Post("/api/dataset/load", s.handleDatasetLoad)
		r.With(auth).Post("/api/dataset/cell", s.handleDatasetCell)
		r.With(auth).Post("/api/dataset/save", s.handleDatasetSave)

		r.Get("/api/export", s.handleExport)
		r.Get("/api/export/status", s.handleExportStatus)

		r.Get("/api/clients", s.handleClients)
		r.Get("/api/clients/{id}", s.handleClient)
		r.With(auth).Put("/api/clients/{id}", s.handleUpdateClient)
		r.With(auth).Delete("/api/clients/{id}", s.handleDeleteClient)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disabled for SSE
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for running operations.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Close()
		s.uploadLimiter.Close()
	}
	if s.server == nil {
		return s.service.Drain(ctx)
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.service.Drain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const cspPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'"

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", cspPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
