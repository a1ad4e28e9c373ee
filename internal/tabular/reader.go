package tabular

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewTextReader wraps r for text decoding: a leading UTF-8 BOM is dropped
// and invalid UTF-8 sequences are replaced with U+FFFD as the data streams
// through, so spreadsheet exports from Windows tools parse cleanly.
func NewTextReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
