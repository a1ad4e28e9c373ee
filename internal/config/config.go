// Package config loads application settings from environment variables,
// applies defaults and validates the result before anything starts.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/MartinRitsberg/ParemInfo/internal/store"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Upload   UploadConfig
	Export   ExportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout bounds reading a request, uploads included.
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout bounds writing a response; exports stream workbooks.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig selects and names the local record store.
type StoreConfig struct {
	// Driver is sqlite (default) or postgres.
	Driver string `env:"STORE_DRIVER" default:"sqlite"`

	// Path is the sqlite database file.
	Path string `env:"STORE_PATH" default:"data/ExcelDataDB.db"`

	// URL is the postgres connection string, used when Driver is postgres.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	Name       string `env:"STORE_NAME" default:"ExcelDataDB"`
	Version    int    `env:"STORE_VERSION" default:"1"`
	Collection string `env:"STORE_COLLECTION" default:"excelData"`
}

// UploadConfig holds import settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted file in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is how many operations one surface runs at once.
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long to wait for a free slot.
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"10s"`

	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// ExportConfig holds workbook export settings.
type ExportConfig struct {
	// Dir is where the CLI writes exported files.
	Dir         string `env:"EXPORT_DIR" default:"."`
	DefaultName string `env:"EXPORT_DEFAULT_NAME" default:"exported_data.xlsx"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit is requests per minute for import endpoints.
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards every request that changes stored data.
	RequireAPIKey bool     `env:"SECURITY_REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"SECURITY_API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text, json or tint (colored text for terminals).
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Manager returns the store settings in the form the store package takes.
func (c StoreConfig) Manager() store.Config {
	return store.Config{
		Driver:     strings.ToLower(c.Driver),
		Path:       c.Path,
		URL:        c.URL,
		Name:       c.Name,
		Version:    c.Version,
		Collection: c.Collection,
	}
}
