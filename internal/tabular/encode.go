package tabular

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	// DefaultExportName is used when no file name is supplied.
	DefaultExportName = "exported_data.xlsx"

	// ExportSheetName names the single sheet of an exported workbook.
	ExportSheetName = "Sheet1"
)

// EnsureExtension appends ".xlsx" unless name already ends with it.
func EnsureExtension(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultExportName
	}
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return name
	}
	return name + ".xlsx"
}

// EncodeWorkbook writes rows as a single-sheet workbook. The first record
// fixes the column order; later records are projected onto it and cells
// they lack are left blank. Nothing is written for an empty sequence.
func EncodeWorkbook(w io.Writer, rows []Record) error {
	if len(rows) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	columns := rows[0].Columns()
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(ExportSheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range rows {
		values := make([]any, len(columns))
		for j, col := range columns {
			if c, ok := rec.Get(col); ok {
				values[j] = c.Value()
			}
		}
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheetName, ref, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
