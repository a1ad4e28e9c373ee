package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MartinRitsberg/ParemInfo/internal/core"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// rowsResponse is the JSON form of a grid of rows.
type rowsResponse struct {
	Name    string           `json:"name,omitempty"`
	Columns []string         `json:"columns"`
	Rows    []tabular.Record `json:"rows"`
}

func sheetResponse(name string, columns []string, rows []tabular.Record) rowsResponse {
	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = []tabular.Record{}
	}
	return rowsResponse{Name: name, Columns: columns, Rows: rows}
}

// datasetResponse is the editor state returned by every dataset endpoint.
type datasetResponse struct {
	rowsResponse
	State   core.ViewState `json:"state"`
	Message string         `json:"message,omitempty"`
	Saved   bool           `json:"saved"`
}

func (s *Server) writeDataset(w http.ResponseWriter) {
	snap := s.service.Dataset().Snapshot()
	writeJSON(w, http.StatusOK, datasetResponse{
		rowsResponse: sheetResponse("", snap.Columns, snap.Rows),
		State:        snap.State,
		Message:      snap.Message,
		Saved:        snap.Saved,
	})
}

// handleDataset returns the editable dataset, loading it on first use.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	view := s.service.Dataset()
	if view.State() == core.ViewIdle {
		if err := view.Load(withOrigin(r)); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	s.writeDataset(w)
}

// handleDatasetLoad reloads the dataset from the store, dropping unsaved
// edits.
func (s *Server) handleDatasetLoad(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Dataset().Load(withOrigin(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeDataset(w)
}

// cellEdit is the body of POST /api/dataset/cell.
type cellEdit struct {
	Row    *int   `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// handleDatasetCell edits one in-memory cell.
func (s *Server) handleDatasetCell(w http.ResponseWriter, r *http.Request) {
	var edit cellEdit
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&edit); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", core.ErrInvalidRequest, err))
		return
	}
	if edit.Row == nil || edit.Column == "" {
		s.respondError(w, r, fmt.Errorf("%w: row and column are required", core.ErrInvalidRequest))
		return
	}

	if err := s.service.Dataset().EditCell(*edit.Row, edit.Column, edit.Value); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeDataset(w)
}

// handleDatasetSave writes every in-memory row back to the store.
func (s *Server) handleDatasetSave(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Dataset().Save(withOrigin(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	if !wantsJSON(r) {
		http.Redirect(w, r, "/editor", http.StatusSeeOther)
		return
	}
	s.writeDataset(w)
}

// handleDatasetCSV replaces the dataset with an uploaded CSV file.
func (s *Server) handleDatasetCSV(w http.ResponseWriter, r *http.Request) {
	file, _, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	if err := s.service.Dataset().LoadCSV(withOrigin(r), file); err != nil {
		s.respondError(w, r, err)
		return
	}
	if !wantsJSON(r) {
		http.Redirect(w, r, "/editor", http.StatusSeeOther)
		return
	}
	s.writeDataset(w)
}
