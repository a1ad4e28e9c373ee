package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MartinRitsberg/ParemInfo/internal/core"
)

// multipartOverhead is allowed on top of the file size for form fields
// and part headers.
const multipartOverhead = 1 << 20

// formFile reads the "file" part of a multipart upload, capping the body
// at the configured file size.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, fmt.Errorf("%w: %w", core.ErrFileTooLarge, err)
		}
		return nil, nil, fmt.Errorf("%w: %w", core.ErrNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrNoFile, err)
	}
	if header.Size > maxSize {
		file.Close()
		return nil, nil, fmt.Errorf("%w: %d bytes", core.ErrFileTooLarge, header.Size)
	}
	return file, header, nil
}

// handleImport replaces the store with the uploaded workbook.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	result, err := s.service.Import(withOrigin(r), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"operation_id": result.OperationID,
		"file_name":    result.FileName,
		"sheet_count":  result.SheetCount,
		"sheets":       result.Sheets,
		"clients":      result.Clients,
		"duration":     result.Duration.String(),
	})
}

// handleImportStatus returns the state of the most recent import.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ImportStatus())
}

// handleImportEvents streams import status changes via Server-Sent Events.
// The current status is sent first.
func (s *Server) handleImportEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"))
		return
	}

	statusCh, cancel := s.service.SubscribeImport()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	send := func(st core.Status) bool {
		data, err := json.Marshal(st)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(s.service.ImportStatus()) {
		return
	}
	for {
		select {
		case st := <-statusCh:
			if !send(st) {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// handleSheets lists the stored sheets.
func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := s.service.Sheets(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if sheets == nil {
		sheets = []core.SheetInfo{}
	}
	writeJSON(w, http.StatusOK, sheets)
}

// handleSheet returns one stored sheet's rows.
func (s *Server) handleSheet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sheet, ok, err := s.service.Sheet(r.Context(), name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrSheetNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, sheetResponse(sheet.Name, sheet.Columns(), sheet.Rows))
}
