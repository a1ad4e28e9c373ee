package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MartinRitsberg/ParemInfo/internal/core"
)

// clientResponse adds the display name to a client.
type clientResponse struct {
	core.Client
	Name string `json:"name"`
}

func toClientResponse(c core.Client) clientResponse {
	return clientResponse{Client: c, Name: c.DisplayName()}
}

// handleClients lists the imported clients in import order.
func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.service.Clients(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]clientResponse, len(clients))
	for i, c := range clients {
		out[i] = toClientResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleClient returns one client.
func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	c, err := s.service.Client(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(c))
}

// handleUpdateClient applies a JSON object of column to value to a client.
func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&fields); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err))
		return
	}

	c, err := s.service.UpdateClient(withOrigin(r), chi.URLParam(r, "id"), fields)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(c))
}

// handleDeleteClient removes a client.
func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteClient(withOrigin(r), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
