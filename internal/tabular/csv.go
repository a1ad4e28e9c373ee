package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// columnName returns the header for position i, falling back to
// Column<i> when the header cell is blank.
func columnName(raw string, i int) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "Column" + strconv.Itoa(i)
	}
	return name
}

func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	for i, h := range raw {
		names[i] = columnName(h, i)
	}
	return names
}

// DecodeCSV reads comma-separated text into a single sheet. The first line
// is the header; each following line becomes a record keyed by header.
// Values are trimmed and missing trailing values become empty strings.
func DecodeCSV(r io.Reader, sheetName string) (Sheet, error) {
	reader := csv.NewReader(NewTextReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	sheet := Sheet{Name: sheetName}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return sheet, nil
	}
	if err != nil {
		return Sheet{}, &DecodeError{Sheet: sheetName, Err: fmt.Errorf("read header: %w", err)}
	}
	columns := headerNames(header)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sheet{}, &DecodeError{Sheet: sheetName, Err: err}
		}
		if isEmptyRow(row) {
			continue
		}
		rec := NewRecord()
		for i, col := range columns {
			val := ""
			if i < len(row) {
				val = strings.TrimSpace(row[i])
			}
			rec.Set(col, Text(val))
		}
		sheet.Rows = append(sheet.Rows, rec)
	}
	return sheet, nil
}

// isEmptyRow reports whether every value in row is whitespace.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
