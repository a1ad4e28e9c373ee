package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MartinRitsberg/ParemInfo/internal/config"
	"github.com/MartinRitsberg/ParemInfo/internal/core"
	"github.com/MartinRitsberg/ParemInfo/internal/store"
	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 1,
			MaxWaitTime:   time.Second,
			Timeout:       10 * time.Second,
		},
		Security: config.SecurityConfig{EnableCSP: true},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	st, err := store.New(store.Config{Path: filepath.Join(t.TempDir(), "web.db")})
	require.NoError(t, err)
	svc := core.NewService(st, core.Options{
		MaxFileSize:   cfg.Upload.MaxFileSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWaitTime:   cfg.Upload.MaxWaitTime,
	})
	s := NewServer(svc, cfg)
	t.Cleanup(func() {
		if s.limiter != nil {
			s.limiter.Close()
			s.uploadLimiter.Close()
		}
	})
	return s
}

func (s *Server) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, fileName string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func clientsWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"eesnimi", "perenimi", "isikukood"},
		{"Mari", "Maasikas", "49001010000"},
		{"Jaan", "Tamm", "38001010000"},
	}
	require.NoError(t, f.SetSheetName("Sheet1", core.ClientsSheet))
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(core.ClientsSheet, ref, &row))
	}
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Notes", "A1", &[]any{"note"}))
	require.NoError(t, f.SetSheetRow("Notes", "A2", &[]any{"call back"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestImportAPI(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, uploadRequest(t, "/api/import", "people.xlsx", clientsWorkbook(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		OperationID string   `json:"operation_id"`
		SheetCount  int      `json:"sheet_count"`
		Sheets      []string `json:"sheets"`
		Clients     int      `json:"clients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.OperationID)
	assert.Equal(t, 2, result.SheetCount)
	assert.Equal(t, []string{"Clients", "Notes"}, result.Sheets)
	assert.Equal(t, 2, result.Clients)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status core.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, core.PhaseSuccess, status.Phase)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/sheets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sheets []core.SheetInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sheets))
	require.Len(t, sheets, 1)
	assert.Equal(t, "Notes", sheets[0].Name)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/sheets/Notes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Notes","columns":["note"],"rows":[{"note":"call back"}]}`, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/sheets/Missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SHT001", decodeError(t, rec).Code)

	// Imports never write the editable dataset.
	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EXP001", decodeError(t, rec).Code)
}

func TestImportStatusReportsZeroSheets(t *testing.T) {
	s := newTestServer(t)

	f := excelize.NewFile()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rec := s.do(t, uploadRequest(t, "/api/import", "blank.xlsx", buf.Bytes()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "success", status["phase"])
	count, ok := status["count"]
	require.True(t, ok, rec.Body.String())
	assert.EqualValues(t, 0, count)
}

func TestImportErrors(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decodeError(t, rec).Code)

	rec = s.do(t, uploadRequest(t, "/api/import", "broken.xlsx", []byte("not a workbook")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "FILE003", decodeError(t, rec).Code)

	legacy := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00, 0x01}
	rec = s.do(t, uploadRequest(t, "/api/import", "legacy.xls", legacy))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "FILE003", decodeError(t, rec).Code)

	rec = s.do(t, uploadRequest(t, "/api/import", "big.csv", bytes.Repeat([]byte("a,b\n"), 300_000)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))
	var status core.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, core.PhaseError, status.Phase)
}

func TestDatasetEditExportRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, uploadRequest(t, "/api/dataset/csv", "data.csv", []byte("name,age\nAlice,30\nBob,25\n")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, jsonRequest(http.MethodPost, "/api/dataset/cell", `{"row":1,"column":"age","value":"26"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ds struct {
		State   core.ViewState   `json:"state"`
		Columns []string         `json:"columns"`
		Rows    []tabular.Record `json:"rows"`
		Saved   bool             `json:"saved"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	assert.Equal(t, core.ViewReady, ds.State)
	assert.False(t, ds.Saved)
	assert.Equal(t, "26", ds.Rows[1].Map()["age"])

	rec = s.do(t, jsonRequest(http.MethodPost, "/api/dataset/save", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/export?name=people", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "people.xlsx")

	exported, err := tabular.DecodeWorkbook(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	sheet, ok := exported.Sheet(tabular.ExportSheetName)
	require.True(t, ok)
	assert.Equal(t, []string{"name", "age"}, sheet.Columns())
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, map[string]string{"name": "Alice", "age": "30"}, sheet.Rows[0].Map())
	assert.Equal(t, map[string]string{"name": "Bob", "age": "26"}, sheet.Rows[1].Map())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/export/status", nil))
	var status core.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, core.PhaseSuccess, status.Phase)
	assert.Equal(t, 2, status.Count)
}

func TestDatasetErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, jsonRequest(http.MethodPost, "/api/dataset/cell", `{"row":0,"column":"a","value":"x"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EDT001", decodeError(t, rec).Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/dataset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"columns":[],"rows":[],"state":"ready","saved":false}`, rec.Body.String())

	rec = s.do(t, jsonRequest(http.MethodPost, "/api/dataset/cell", `{"row":0,"column":"a","value":"x"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EDT002", decodeError(t, rec).Code)

	rec = s.do(t, jsonRequest(http.MethodPost, "/api/dataset/cell", `{"column":"a"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decodeError(t, rec).Code)

	rec = s.do(t, jsonRequest(http.MethodPost, "/api/dataset/cell", `not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientsAPI(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, uploadRequest(t, "/api/import", "people.xlsx", clientsWorkbook(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/clients", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var clients []struct {
		ID   string            `json:"id"`
		Name string            `json:"name"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clients))
	require.Len(t, clients, 2)
	assert.Equal(t, "client_1", clients[0].ID)
	assert.Equal(t, "Mari Maasikas", clients[0].Name)
	assert.Equal(t, "49001010000", clients[0].Data["isikukood"])

	rec = s.do(t, jsonRequest(http.MethodPut, "/api/clients/client_2", `{"perenimi":"Kask"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/clients/client_2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Jaan Kask"`)

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/clients/client_2", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/clients/client_2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CLI001", decodeError(t, rec).Code)

	rec = s.do(t, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/clients", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPages(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, uploadRequest(t, "/api/import", "people.xlsx", clientsWorkbook(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Mari Maasikas")
	assert.Contains(t, body, "call back")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/editor", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No data loaded.")
}

func TestPageEscapesCellText(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, uploadRequest(t, "/api/import", "x.csv", []byte("html\n<script>alert(1)</script>\n")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestFormPostRedirects(t *testing.T) {
	s := newTestServer(t)
	req := uploadRequest(t, "/api/import", "x.csv", []byte("a\n1\n"))
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := s.do(t, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestHealthAndLimits(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store_version":1}`, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/limits", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"import"`)
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := s.do(t, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = s.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reads stay open.
	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/sheets", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	})

	for i := 0; i < 2; i++ {
		rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/import/status", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	ok, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, retry := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.GreaterOrEqual(t, retry, time.Second)
	ok, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok)

	rl.cleanup(time.Now().Add(time.Hour))
	rl.mu.Lock()
	_, kept := rl.visitors["1.1.1.1"]
	rl.mu.Unlock()
	assert.True(t, kept, "drained bucket must not be forgotten")
}
