package store

import (
	"encoding/json"
	"time"
)

// TypeClient marks records holding one client row. Other records carry
// no type.
const TypeClient = "client"

// Record is one entry of the collection, persisted as JSON under ID.
// Data is kept raw so callers decide its shape.
type Record struct {
	ID        string          `json:"id"`
	Type      string          `json:"type,omitempty"`
	SheetName string          `json:"sheetName,omitempty"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Time parses Timestamp, returning the zero time when unset or malformed.
func (r Record) Time() time.Time {
	if r.Timestamp == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Stamp formats t the way records store it.
func Stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func (r Record) encode() ([]byte, error) {
	if r.Data == nil {
		r.Data = json.RawMessage("null")
	}
	return json.Marshal(r)
}

func decodeRecord(body string) (Record, error) {
	var r Record
	err := json.Unmarshal([]byte(body), &r)
	return r, err
}
