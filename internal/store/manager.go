package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

const metaTable = "store_meta"

// Manager owns the lifecycle of one versioned database holding a single
// collection of JSON records keyed by id.
//
// Every operation opens its own connection, runs the version upgrade if
// needed, does its work and closes the connection again. A Manager holds
// no open handles between calls and is safe to share.
type Manager struct {
	cfg     Config
	dialect *dialect
	logger  *slog.Logger

	// ensureSchema creates the collection during an upgrade.
	ensureSchema func(ctx context.Context, tx *sql.Tx) error
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithSchema replaces the schema routine run when the stored version is
// older than the configured one. It receives the open upgrade transaction.
func WithSchema(fn func(ctx context.Context, tx *sql.Tx) error) Option {
	return func(m *Manager) { m.ensureSchema = fn }
}

// New validates cfg and returns a Manager. No connection is made.
func New(cfg Config, opts ...Option) (*Manager, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := newDialect(cfg)
	if err != nil {
		return nil, err
	}
	m := &Manager{cfg: cfg, dialect: d, logger: slog.Default()}
	m.ensureSchema = m.createCollection
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// Collection is the name of the single record collection.
func (m *Manager) Collection() string { return m.cfg.Collection }

func (m *Manager) createCollection(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+m.dialect.table(m.cfg.Collection)+` (
		id   TEXT PRIMARY KEY,
		body TEXT NOT NULL
	)`)
	return err
}

// open connects, upgrades the schema if the stored version is behind and
// checks the collection exists.
func (m *Manager) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(m.dialect.driver, m.dialect.dsn)
	if err != nil {
		return nil, newError(ErrOpen, "open", err)
	}
	if err := m.dialect.prepare(ctx, db); err != nil {
		db.Close()
		return nil, newError(ErrOpen, "open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, newError(ErrOpen, "open", err)
	}
	if err := m.upgrade(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	var n int
	if err := db.QueryRowContext(ctx, m.dialect.tableExists, m.cfg.Collection).Scan(&n); err != nil {
		db.Close()
		return nil, newError(ErrOpen, "open", err)
	}
	if n == 0 {
		db.Close()
		return nil, &Error{Kind: ErrMissingCollection, Op: "open", Key: m.cfg.Collection}
	}
	return db, nil
}

func (m *Manager) upgrade(ctx context.Context, db *sql.DB) error {
	meta := m.dialect.table(metaTable)
	p1, p2 := m.dialect.placeholder(1), m.dialect.placeholder(2)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+meta+` (
		name    TEXT PRIMARY KEY,
		version INTEGER NOT NULL
	)`); err != nil {
		return newError(ErrOpen, "open", err)
	}

	current, err := m.storedVersion(ctx, db)
	if err != nil {
		return newError(ErrOpen, "open", err)
	}
	if current > m.cfg.Version {
		return errorf(ErrOpen, "open", "stored version %d is newer than %d", current, m.cfg.Version)
	}
	if current == m.cfg.Version {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return newError(ErrUpgrade, "upgrade", err)
	}
	defer tx.Rollback()

	if err := m.ensureSchema(ctx, tx); err != nil {
		return newError(ErrUpgrade, "upgrade", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+meta+` (name, version) VALUES (`+p1+`, `+p2+`)
		ON CONFLICT (name) DO UPDATE SET version = excluded.version`, m.cfg.Name, m.cfg.Version); err != nil {
		return newError(ErrUpgrade, "upgrade", err)
	}
	if err := tx.Commit(); err != nil {
		return newError(ErrUpgrade, "upgrade", err)
	}

	m.logger.Debug("store upgraded",
		"name", m.cfg.Name,
		"from", current,
		"to", m.cfg.Version,
	)
	return nil
}

func (m *Manager) storedVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx,
		`SELECT version FROM `+m.dialect.table(metaTable)+` WHERE name = `+m.dialect.placeholder(1),
		m.cfg.Name,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// Version opens the store and returns its schema version.
func (m *Manager) Version(ctx context.Context) (int, error) {
	db, err := m.open(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	v, err := m.storedVersion(ctx, db)
	if err != nil {
		return 0, newError(ErrOpen, "version", err)
	}
	return v, nil
}

// Reset deletes the database and recreates it empty at the configured
// version.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.dialect.destroy(ctx); err != nil {
		return newError(ErrOpen, "reset", fmt.Errorf("delete database: %w", err))
	}
	db, err := m.open(ctx)
	if err != nil {
		return err
	}
	m.logger.Debug("store reset", "name", m.cfg.Name)
	return db.Close()
}

// Update runs fn in one read-write transaction. Nothing is committed if
// fn returns an error; the error is reported as a transaction failure.
func (m *Manager) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return m.run(ctx, "update", false, func(tx *Tx) error {
		if err := fn(tx); err != nil {
			return newError(ErrTransaction, "update", err)
		}
		return nil
	})
}

// View runs fn in a read-only transaction.
func (m *Manager) View(ctx context.Context, fn func(tx *Tx) error) error {
	return m.run(ctx, "view", true, fn)
}

func (m *Manager) run(ctx context.Context, op string, readOnly bool, fn func(tx *Tx) error) error {
	db, err := m.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	sqlTx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly && m.cfg.Driver == DriverPostgres})
	if err != nil {
		return newError(ErrTransaction, op, err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{ctx: ctx, tx: sqlTx, m: m}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return newError(ErrTransaction, op, err)
	}
	return nil
}

// Get returns the record stored under key.
func (m *Manager) Get(ctx context.Context, key string) (rec Record, ok bool, err error) {
	err = m.View(ctx, func(tx *Tx) error {
		rec, ok, err = tx.Get(key)
		return err
	})
	return rec, ok, err
}

// Put inserts or replaces rec.
func (m *Manager) Put(ctx context.Context, rec Record) error {
	return m.run(ctx, "put", false, func(tx *Tx) error { return tx.Put(rec) })
}

// Add inserts rec, failing with ErrKeyConflict if its id is taken.
func (m *Manager) Add(ctx context.Context, rec Record) error {
	return m.run(ctx, "add", false, func(tx *Tx) error { return tx.Add(rec) })
}

// Delete removes key, reporting whether it existed.
func (m *Manager) Delete(ctx context.Context, key string) (deleted bool, err error) {
	err = m.run(ctx, "delete", false, func(tx *Tx) error {
		deleted, err = tx.Delete(key)
		return err
	})
	return deleted, err
}

// Clear removes every record.
func (m *Manager) Clear(ctx context.Context) error {
	return m.run(ctx, "clear", false, func(tx *Tx) error { return tx.Clear() })
}

// ReadAll returns every record in key order.
func (m *Manager) ReadAll(ctx context.Context) (recs []Record, err error) {
	err = m.View(ctx, func(tx *Tx) error {
		recs, err = tx.ReadAll()
		return err
	})
	return recs, err
}
