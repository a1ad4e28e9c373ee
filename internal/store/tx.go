package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Tx is an open transaction on the collection.
type Tx struct {
	ctx context.Context
	tx  *sql.Tx
	m   *Manager
}

func (t *Tx) table() string { return t.m.dialect.table(t.m.cfg.Collection) }

func (t *Tx) ph(n int) string { return t.m.dialect.placeholder(n) }

// Get returns the record under key.
func (t *Tx) Get(key string) (Record, bool, error) {
	var body string
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT body FROM `+t.table()+` WHERE id = `+t.ph(1), key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, &Error{Kind: ErrTransaction, Op: "get", Key: key, Err: err}
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return Record{}, false, &Error{Kind: ErrTransaction, Op: "get", Key: key, Err: fmt.Errorf("decode: %w", err)}
	}
	return rec, true, nil
}

// Put inserts or replaces rec.
func (t *Tx) Put(rec Record) error {
	body, err := rec.encode()
	if err != nil {
		return &Error{Kind: ErrTransaction, Op: "put", Key: rec.ID, Err: err}
	}
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO `+t.table()+` (id, body) VALUES (`+t.ph(1)+`, `+t.ph(2)+`)
		ON CONFLICT (id) DO UPDATE SET body = excluded.body`,
		rec.ID, string(body),
	)
	if err != nil {
		return &Error{Kind: ErrTransaction, Op: "put", Key: rec.ID, Err: err}
	}
	return nil
}

// Add inserts rec. An existing record under the same id is left untouched
// and ErrKeyConflict is returned.
func (t *Tx) Add(rec Record) error {
	body, err := rec.encode()
	if err != nil {
		return &Error{Kind: ErrTransaction, Op: "add", Key: rec.ID, Err: err}
	}
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO `+t.table()+` (id, body) VALUES (`+t.ph(1)+`, `+t.ph(2)+`)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, string(body),
	)
	if err != nil {
		return &Error{Kind: ErrTransaction, Op: "add", Key: rec.ID, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &Error{Kind: ErrTransaction, Op: "add", Key: rec.ID, Err: err}
	}
	if n == 0 {
		return conflict("add", rec.ID)
	}
	return nil
}

// Delete removes key, reporting whether a record was removed.
func (t *Tx) Delete(key string) (bool, error) {
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM `+t.table()+` WHERE id = `+t.ph(1), key)
	if err != nil {
		return false, &Error{Kind: ErrTransaction, Op: "delete", Key: key, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &Error{Kind: ErrTransaction, Op: "delete", Key: key, Err: err}
	}
	return n > 0, nil
}

// Clear removes every record.
func (t *Tx) Clear() error {
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM `+t.table()); err != nil {
		return newError(ErrTransaction, "clear", err)
	}
	return nil
}

// ReadAll returns every record ordered by id.
func (t *Tx) ReadAll() ([]Record, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT body FROM `+t.table()+` ORDER BY id`)
	if err != nil {
		return nil, newError(ErrTransaction, "read all", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, newError(ErrTransaction, "read all", err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, newError(ErrTransaction, "read all", fmt.Errorf("decode: %w", err))
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(ErrTransaction, "read all", err)
	}
	return recs, nil
}
