package tabular

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks a file that is not a readable spreadsheet.
	ErrDecode = errors.New("decode failed")

	// ErrNothingToExport is returned when encoding an empty row sequence.
	ErrNothingToExport = errors.New("nothing to export")

	// ErrUnsupportedFormat is returned for file types the codec cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// DecodeError carries the sheet a decode failure happened in, if any.
type DecodeError struct {
	Sheet string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("decode sheet %q: %v", e.Sheet, e.Err)
	}
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
