// Package tabular converts spreadsheet files to and from row records.
//
// A decoded file is a Dataset: an ordered list of Sheets, each an ordered
// list of Records. A Record maps column names to Cells and keeps the
// column order of the header it was built from, which is also the order
// used when the record is marshaled to JSON.
//
// Decoding accepts comma-separated text and xlsx workbooks. Encoding
// always produces a single-sheet xlsx workbook.
package tabular
