// Package core implements the spreadsheet workflows: importing a file into
// the local store, exporting the default dataset as a workbook, editing
// that dataset in memory and managing client entities.
//
// It has no transport dependencies; the web server and the sheetctl CLI
// are both thin callers of [Service].
//
// # Stored layout
//
// All data lives in one collection keyed by id:
//
//   - "excelData": the editable default dataset, an array of rows
//   - "client_<n>": one row of the "Clients" sheet of the last import
//   - "sheet_<name>": every other sheet of the last import
//
// The default dataset and the per-sheet records are independent. An import
// never touches "excelData" except by clearing it along with everything
// else, and saving the editor never touches the sheet records.
//
// # Import
//
// [Service.Import] resets the store, reads and decodes the file, then
// writes every record in a single transaction. A failure at any step
// leaves the store reset and empty.
//
// # Error Handling
//
// Errors keep their kind through wrapping so callers can use errors.Is.
// [MapError] turns any error into a [UserMessage] with a support code:
//
//   - STO001-STO005: store errors (open, upgrade, transaction, conflicts)
//   - FILE001-FILE006: file errors (size, read, decode, format)
//   - EXP001: nothing to export
//   - EDT001-EDT002: editor errors
//   - CLI001, SHT001: unknown client or sheet
//   - REQ001: malformed requests
//   - UPL002, UPL004, UPL005: busy, cancelled and timed out operations
package core
