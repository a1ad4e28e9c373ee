package tabular

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is one row of a sheet: column name to cell, in column order.
// Setting an existing column keeps its position; new columns go last.
// Copies of a Record share storage, use Clone for an independent one.
type Record struct {
	cells *orderedmap.OrderedMap[string, Cell]
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{cells: orderedmap.New[string, Cell]()}
}

// RecordOf builds a record from parallel column and cell slices. Columns
// without a matching cell are blank.
func RecordOf(columns []string, cells []Cell) Record {
	r := NewRecord()
	for i, col := range columns {
		c := Blank()
		if i < len(cells) {
			c = cells[i]
		}
		r.Set(col, c)
	}
	return r
}

func (r *Record) init() {
	if r.cells == nil {
		r.cells = orderedmap.New[string, Cell]()
	}
}

// Set stores a cell under column.
func (r *Record) Set(column string, c Cell) {
	r.init()
	r.cells.Set(column, c)
}

// Get returns the cell stored under column.
func (r Record) Get(column string) (Cell, bool) {
	if r.cells == nil {
		return Cell{}, false
	}
	return r.cells.Get(column)
}

// Columns lists the record's columns in order.
func (r Record) Columns() []string {
	if r.cells == nil {
		return nil
	}
	cols := make([]string, 0, r.cells.Len())
	for p := r.cells.Oldest(); p != nil; p = p.Next() {
		cols = append(cols, p.Key)
	}
	return cols
}

// Len returns the number of columns.
func (r Record) Len() int {
	if r.cells == nil {
		return 0
	}
	return r.cells.Len()
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	out := NewRecord()
	if r.cells == nil {
		return out
	}
	for p := r.cells.Oldest(); p != nil; p = p.Next() {
		out.cells.Set(p.Key, p.Value)
	}
	return out
}

// Equal compares column order and values.
func (r Record) Equal(o Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	if r.Len() == 0 {
		return true
	}
	q := o.cells.Oldest()
	for p := r.cells.Oldest(); p != nil; p = p.Next() {
		if p.Key != q.Key || p.Value != q.Value {
			return false
		}
		q = q.Next()
	}
	return true
}

// Map flattens the record to display strings, losing order.
func (r Record) Map() map[string]string {
	out := make(map[string]string, r.Len())
	if r.cells == nil {
		return out
	}
	for p := r.cells.Oldest(); p != nil; p = p.Next() {
		out[p.Key] = p.Value.String()
	}
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.cells == nil {
		return []byte("{}"), nil
	}
	return r.cells.MarshalJSON()
}

func (r *Record) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = NewRecord()
		return nil
	}
	m := orderedmap.New[string, Cell]()
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	r.cells = m
	return nil
}

// CloneRows deep-copies a row slice.
func CloneRows(rows []Record) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// MarshalRows encodes rows as a JSON array, `[]` when empty.
func MarshalRows(rows []Record) (json.RawMessage, error) {
	if len(rows) == 0 {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(rows)
}

// UnmarshalRows decodes a JSON array of records.
func UnmarshalRows(data []byte) ([]Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var rows []Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
