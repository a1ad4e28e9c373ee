package core

// validation.go checks that imported sheets carry the columns the rest of
// the application reads. Missing columns are reported as warnings; the
// import itself still succeeds.

import (
	"fmt"

	"github.com/MartinRitsberg/ParemInfo/internal/tabular"
)

// ValidationError describes one column problem in an imported sheet.
type ValidationError struct {
	Sheet   string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Sheet, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Sheet, e.Message)
}

// clientColumns are read by the client list and client card.
var clientColumns = []string{ColFirstName, ColLastName, ColIDCode}

// validateClients reports client columns missing from the sheet header.
func validateClients(sheet tabular.Sheet) []ValidationError {
	present := make(map[string]bool)
	for _, col := range sheet.Columns() {
		present[col] = true
	}
	var errs []ValidationError
	for _, col := range clientColumns {
		if !present[col] {
			errs = append(errs, ValidationError{Sheet: sheet.Name, Field: col, Message: "column missing"})
		}
	}
	return errs
}
