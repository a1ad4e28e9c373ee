package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

// setupEnv points the CLI at a fresh store and returns a scratch dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("STORE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("EXPORT_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportAndShow(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "orders.csv", "sku,qty\nA-1,2\nB-2,5\n")

	out, err := run(t, "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 sheet(s) from orders.csv")

	out, err = run(t, "show", "sheets")
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "sku, qty")

	out, err = run(t, "show", "clients")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
}

func TestLoadEditExport(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "people.csv", "name,age\nAlice,30\n")

	out, err := run(t, "load-csv", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 1 row(s)")

	_, err = run(t, "edit", "--row", "0", "--column", "age", "--value", "31")
	require.NoError(t, err)

	out, err = run(t, "show", "dataset")
	require.NoError(t, err)
	assert.Contains(t, out, "31")

	out, err = run(t, "export", "-o", "people")
	require.NoError(t, err)
	exported := filepath.Join(dir, "people.xlsx")
	assert.Contains(t, out, exported)

	f, err := os.Open(exported)
	require.NoError(t, err)
	defer f.Close()
	ds, err := tabular.DecodeWorkbook(f)
	require.NoError(t, err)
	sheet, ok := ds.Sheet(tabular.ExportSheetName)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"name": "Alice", "age": "31"}, sheet.Rows[0].Map())
}

func TestCommandErrors(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXP001")

	_, err = run(t, "edit", "--row", "3", "--column", "a", "--value", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EDT002")

	_, err = run(t, "import", filepath.Join(dir, "missing.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read the file")

	_, err = run(t, "reset")
	require.Error(t, err)

	_, err = run(t, "reset", "--yes")
	require.NoError(t, err)

	_, err = run(t, "show", "bogus")
	require.Error(t, err)
}
