package core

import (
	"bytes"
	"fmt"
	"io"
)

// readLimited reads all of r, failing with ErrFileTooLarge past max bytes
// and ErrFileRead on any read error.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if r == nil {
		return nil, ErrNoFile
	}
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	if n > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, max)
	}
	return buf.Bytes(), nil
}
