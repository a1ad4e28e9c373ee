package web

import (
	"net/http"

	"github.com/MartinRitsberg/ParemInfo/internal/core"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
	"github.com/MartinRitsberg/ParemInfo/internal/web/templates"
)

// handleDashboard renders the workbook page: import form and status,
// sheet tabs and the client list.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	infos, err := s.service.Sheets(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sheets := make([]tabular.Sheet, 0, len(infos))
	for _, info := range infos {
		sheet, ok, err := s.service.Sheet(ctx, info.Name)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if ok {
			sheets = append(sheets, sheet)
		}
	}

	clients, err := s.service.Clients(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := templates.DashboardData{
		Status:  s.service.ImportStatus(),
		Sheets:  sheets,
		Active:  r.URL.Query().Get("sheet"),
		Clients: clients,
	}
	s.renderPage(w, r, "Workbook", templates.Dashboard(data))
}

// handleEditor renders the editable dataset, loading it on first visit.
func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	view := s.service.Dataset()
	if view.State() == core.ViewIdle {
		// A failed load is shown in the page's status line.
		_ = view.Load(withOrigin(r))
	}
	s.renderPage(w, r, "Editor", templates.Editor(view.Snapshot()))
}
