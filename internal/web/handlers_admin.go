package web

import (
	"net/http"

	"github.com/a-h/templ"

	"github.com/MartinRitsberg/ParemInfo/internal/logging"
	"github.com/MartinRitsberg/ParemInfo/internal/web/templates"
)

// renderPage writes body inside the page layout.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Layout(title, body).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "page", title, "error", err)
	}
}

// handleHealth reports whether the store can be opened.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.service.Store().Version(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"store_version": version,
	})
}

// handleLimits returns the limiter state of each surface.
func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Limits())
}

// handleReset deletes every stored record.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reset(withOrigin(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("store reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
