package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Format is an input file type the codec understands.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// FormatFromName picks a format from a file name's extension.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV
	case ".xlsx", ".xlsm", ".xltx", ".xltm", ".xls":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// oleMagic opens every OLE2 compound file: legacy .xls workbooks and
// password-protected xlsx files.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var errCompoundFile = errors.New("OLE2 compound file (legacy .xls or encrypted workbook) is not supported")

// SniffFormat guesses a format from content. Zip archives are workbooks,
// UTF-8 text without NUL bytes is CSV and anything else is rejected with
// a DecodeError.
func SniffFormat(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, oleMagic):
		return FormatUnknown, &DecodeError{Err: errCompoundFile}
	case bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data):
		return FormatUnknown, &DecodeError{Err: errors.New("binary content is neither a workbook nor text")}
	}
	return FormatCSV, nil
}

// SheetNameFromFile derives a sheet name for single-sheet formats.
func SheetNameFromFile(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "Sheet1"
	}
	return base
}

// Decode reads a file of the given format. CSV input yields a dataset
// with one sheet named after the file; a CSV sheet without data rows
// yields an empty dataset, matching the workbook rule.
func Decode(r io.Reader, format Format, fileName string) (*Dataset, error) {
	switch format {
	case FormatXLSX:
		return DecodeWorkbook(r)
	case FormatCSV:
		sheet, err := DecodeCSV(r, SheetNameFromFile(fileName))
		if err != nil {
			return nil, err
		}
		ds := &Dataset{}
		if len(sheet.Rows) > 0 {
			ds.Add(sheet)
		}
		return ds, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(fileName))
	}
}

// DecodeWorkbook reads every sheet of an xlsx workbook in workbook order.
// Entirely blank rows are dropped, the first remaining row is the header
// and each later row becomes a record. Sheets left with no data rows are
// omitted.
func DecodeWorkbook(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if bytes.HasPrefix(data, oleMagic) {
		return nil, &DecodeError{Err: errCompoundFile}
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer f.Close()

	ds := &Dataset{}
	for _, name := range f.GetSheetList() {
		sheet, err := decodeSheet(f, name)
		if err != nil {
			return nil, &DecodeError{Sheet: name, Err: err}
		}
		if len(sheet.Rows) == 0 {
			continue
		}
		ds.Add(sheet)
	}
	return ds, nil
}

func decodeSheet(f *excelize.File, name string) (Sheet, error) {
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Sheet{}, err
	}

	// GetRows starts at column A; data may start further right.
	offset := -1
	for _, row := range raw {
		if first := firstValue(row); first >= 0 && (offset < 0 || first < offset) {
			offset = first
		}
	}

	sheet := Sheet{Name: name}
	var columns []string
	for i, row := range raw {
		if firstValue(row) < 0 {
			continue
		}
		row = row[offset:]
		if columns == nil {
			columns = headerNames(row)
			continue
		}
		rec := NewRecord()
		for col, header := range columns {
			c := Blank()
			if col < len(row) {
				c, err = readCell(f, name, offset+col, i, row[col])
				if err != nil {
					return Sheet{}, err
				}
			}
			rec.Set(header, normalizeCell(c))
		}
		sheet.Rows = append(sheet.Rows, rec)
	}
	return sheet, nil
}

// firstValue returns the index of the first non-empty cell in row, or -1
// for an entirely blank row. Whitespace counts as a value.
func firstValue(row []string) int {
	for i, v := range row {
		if v != "" {
			return i
		}
	}
	return -1
}

// readCell types a raw cell value. Numbers are written without a type
// attribute or with "n"; everything else is kept as text.
func readCell(f *excelize.File, sheet string, col, row int, raw string) (Cell, error) {
	if raw == "" {
		return Blank(), nil
	}
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return Cell{}, err
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return Cell{}, err
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return Number(n), nil
		}
	case excelize.CellTypeBool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return Text(strings.ToUpper(strconv.FormatBool(b))), nil
		}
	}
	return Text(raw), nil
}
