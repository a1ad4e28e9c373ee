package store

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultName       = "ExcelDataDB"
	DefaultCollection = "excelData"
	DefaultVersion    = 1
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects the backing database and its layout.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string

	// Path is the sqlite file. Defaults to <Name>.db.
	Path string

	// URL is the postgres connection string.
	URL string

	// Name identifies the database: the sqlite file stem or the postgres
	// schema that holds the collection.
	Name string

	Version    int
	Collection string
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.Version == 0 {
		c.Version = DefaultVersion
	}
	if c.Driver == DriverSQLite && c.Path == "" {
		c.Path = c.Name + ".db"
	}
	return c
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []string
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			errs = append(errs, "sqlite path is required")
		}
	case DriverPostgres:
		if c.URL == "" {
			errs = append(errs, "postgres url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown driver %q", c.Driver))
	}
	if !identPattern.MatchString(c.Collection) {
		errs = append(errs, fmt.Sprintf("invalid collection name %q", c.Collection))
	}
	if c.Driver == DriverPostgres && !identPattern.MatchString(c.Name) {
		errs = append(errs, fmt.Sprintf("invalid database name %q", c.Name))
	}
	if c.Version < 1 {
		errs = append(errs, fmt.Sprintf("version must be positive, got %d", c.Version))
	}
	if len(errs) > 0 {
		return fmt.Errorf("store config: %s", strings.Join(errs, "; "))
	}
	return nil
}
