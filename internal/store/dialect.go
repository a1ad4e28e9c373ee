package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// dialect hides the SQL differences between the two backends.
type dialect struct {
	driver string
	dsn    string

	// schema qualifies table names; empty for sqlite.
	schema string

	placeholder func(n int) string

	// tableExists returns a query taking the table name as its only argument.
	tableExists string

	// prepare runs once per connection before the meta table is touched.
	prepare func(ctx context.Context, db *sql.DB) error

	// destroy deletes the database outright.
	destroy func(ctx context.Context) error
}

func newDialect(cfg Config) (*dialect, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqliteDialect(cfg.Path), nil
	case DriverPostgres:
		return postgresDialect(cfg.URL, cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

func sqliteDialect(path string) *dialect {
	return &dialect{
		driver:      "sqlite",
		dsn:         path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		placeholder: func(int) string { return "?" },
		tableExists: `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		prepare: func(ctx context.Context, db *sql.DB) error {
			// A single connection keeps the pragmas and the transaction on
			// the same handle.
			db.SetMaxOpenConns(1)
			if dir := filepath.Dir(path); dir != "." {
				return os.MkdirAll(dir, 0o755)
			}
			return nil
		},
		destroy: func(context.Context) error {
			for _, suffix := range []string{"", "-wal", "-shm"} {
				if err := os.Remove(path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			return nil
		},
	}
}

func postgresDialect(url, schema string) *dialect {
	d := &dialect{
		driver:      "pgx",
		dsn:         url,
		schema:      schema,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		tableExists: `SELECT count(*) FROM information_schema.tables WHERE table_schema = '` + schema + `' AND table_name = $1`,
		prepare: func(ctx context.Context, db *sql.DB) error {
			_, err := db.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS `+quoteIdent(schema))
			return err
		},
	}
	d.destroy = func(ctx context.Context) error {
		db, err := sql.Open(d.driver, d.dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		_, err = db.ExecContext(ctx, `DROP SCHEMA IF EXISTS `+quoteIdent(schema)+` CASCADE`)
		return err
	}
	return d
}

// table returns the qualified, quoted table name. Names are validated
// against identPattern before they get here.
func (d *dialect) table(name string) string {
	if d.schema == "" {
		return quoteIdent(name)
	}
	return quoteIdent(d.schema) + "." + quoteIdent(name)
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
