package templates

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/MartinRitsberg/ParemInfo/internal/core"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

// DashboardData is what the workbook page shows.
type DashboardData struct {
	Status  core.Status
	Sheets  []tabular.Sheet
	Active  string
	Clients []core.Client
}

// Dashboard renders the import form, the import status, one tab per stored
// sheet and the client list.
func Dashboard(d DashboardData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section id="import">`)
		h.raw(`<form method="post" action="/api/import" enctype="multipart/form-data">`)
		h.raw(`<input type="file" name="file" accept=".xlsx,.xlsm,.csv">`)
		h.raw(`<button type="submit">Import</button></form>`)
		statusLine(h, d.Status)
		h.raw(`</section>`)

		h.raw(`<section id="clients"><h2>Clients</h2>`)
		if len(d.Clients) == 0 {
			h.raw(`<p class="empty">No clients imported.</p>`)
		} else {
			h.raw(`<ul>`)
			for _, c := range d.Clients {
				h.raw(`<li`)
				h.attr("data-id", c.ID)
				h.raw(`>`)
				h.text(c.DisplayName())
				if code := c.Field(core.ColIDCode); code != "" {
					h.raw(` <small>`)
					h.text(code)
					h.raw(`</small>`)
				}
				h.raw(`</li>`)
			}
			h.raw(`</ul>`)
		}
		h.raw(`</section>`)

		h.raw(`<section id="sheets"><nav class="tabs">`)
		var active *tabular.Sheet
		for i := range d.Sheets {
			s := &d.Sheets[i]
			if active == nil && (d.Active == "" || d.Active == s.Name) {
				active = s
			}
			h.raw(`<a`)
			h.attr("href", "/?sheet="+url.QueryEscape(s.Name))
			if active == s {
				h.raw(` class="active"`)
			}
			h.raw(`>`)
			h.text(s.Name)
			h.raw(`</a>`)
		}
		h.raw(`</nav>`)
		if active != nil {
			grid(h, active.Columns(), active.Rows, false)
		}
		h.raw(`</section>`)
		return h.err
	})
}

// Editor renders the editable dataset with its controls.
func Editor(snap core.ViewSnapshot) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section id="editor"`)
		h.attr("data-state", string(snap.State))
		h.raw(`>`)
		h.raw(`<form method="post" action="/api/dataset/csv" enctype="multipart/form-data">`)
		h.raw(`<input type="file" name="file" accept=".csv,.txt">`)
		h.raw(`<button type="submit">Load CSV</button></form>`)
		h.raw(`<form method="post" action="/api/dataset/save"><button type="submit">Save</button></form>`)
		h.raw(`<a href="/api/export">Export</a>`)

		switch {
		case snap.State == core.ViewLoading:
			h.raw(`<p class="status">Loading...</p>`)
		case snap.State == core.ViewSaving:
			h.raw(`<p class="status">Saving...</p>`)
		case snap.Message != "":
			h.raw(`<p class="status error">`)
			h.text(snap.Message)
			h.raw(`</p>`)
		case snap.Saved:
			h.raw(`<p class="status success">Data saved successfully</p>`)
		}

		if len(snap.Rows) == 0 {
			h.raw(`<p class="empty">No data loaded.</p>`)
		} else {
			grid(h, snap.Columns, snap.Rows, true)
		}
		h.raw(`</section>`)
		return h.err
	})
}

func statusLine(h *html, s core.Status) {
	switch s.Phase {
	case core.PhaseLoading:
		h.raw(`<p class="status">Importing...</p>`)
	case core.PhaseError:
		h.raw(`<p class="status error">`)
		h.text(s.Message)
		h.raw(`</p>`)
	case core.PhaseSuccess:
		h.raw(`<p class="status success">Imported `)
		h.text(strconv.Itoa(s.Count))
		h.raw(` sheet(s)</p>`)
	}
}

// grid renders rows as a table. Editable grids carry the row index and
// column name on each cell so the page script can post edits.
func grid(h *html, columns []string, rows []tabular.Record, editable bool) {
	h.raw(`<table><thead><tr>`)
	for _, col := range columns {
		h.raw(`<th>`)
		h.text(col)
		h.raw(`</th>`)
	}
	h.raw(`</tr></thead><tbody>`)
	for i, row := range rows {
		h.raw(`<tr>`)
		for _, col := range columns {
			cell, _ := row.Get(col)
			if editable {
				h.rawf(`<td><input data-row="%d"`, i)
				h.attr("data-column", col)
				h.attr("value", cell.String())
				h.raw(`></td>`)
				continue
			}
			h.raw(`<td>`)
			h.text(cell.String())
			h.raw(`</td>`)
		}
		h.raw(`</tr>`)
	}
	h.raw(`</tbody></table>`)
}
