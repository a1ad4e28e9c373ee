package tabular

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CellKind identifies which variant a Cell holds.
type CellKind int

const (
	KindBlank CellKind = iota
	KindString
	KindNumber
)

func (k CellKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "blank"
	}
}

// Cell is a single scalar value in a row: blank, text or number.
// The zero value is a blank cell.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// Blank returns an empty cell.
func Blank() Cell { return Cell{} }

// Text returns a string cell.
func Text(s string) Cell { return Cell{Kind: KindString, Text: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{Kind: KindNumber, Number: f} }

// IsBlank reports whether the cell carries no value. An empty string
// counts as blank.
func (c Cell) IsBlank() bool {
	return c.Kind == KindBlank || (c.Kind == KindString && c.Text == "")
}

// String renders the cell the way it is shown in a grid.
func (c Cell) String() string {
	switch c.Kind {
	case KindString:
		return c.Text
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Value returns the cell as a plain Go value for writers that type cells
// themselves (nil, string or float64).
func (c Cell) Value() any {
	switch c.Kind {
	case KindString:
		return c.Text
	case KindNumber:
		return c.Number
	default:
		return nil
	}
}

// normalizeCell maps a blank cell to the empty string so persisted rows
// always carry a value for every declared column.
func normalizeCell(c Cell) Cell {
	if c.Kind == KindBlank {
		return Text("")
	}
	return c
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindString:
		return json.Marshal(c.Text)
	case KindNumber:
		return []byte(strconv.FormatFloat(c.Number, 'f', -1, 64)), nil
	default:
		return []byte(`""`), nil
	}
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Blank()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = Text(strings.ToUpper(strconv.FormatBool(b)))
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("cell value %s: %w", data, err)
		}
		*c = Number(f)
	}
	return nil
}
