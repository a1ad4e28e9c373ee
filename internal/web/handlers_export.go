package web

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/MartinRitsberg/ParemInfo/internal/logging"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport downloads the stored dataset as a workbook. The optional
// name query parameter sets the file name.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Export(withOrigin(r), r.URL.Query().Get("name"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	if _, err := w.Write(result.Data); err != nil {
		logging.FromContext(r.Context()).Error("export write failed",
			"operation_id", result.OperationID,
			"error", fmt.Errorf("write %s: %w", result.FileName, err),
		)
	}
}

// handleExportStatus returns the state of the most recent export.
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ExportStatus())
}
