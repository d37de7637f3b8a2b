package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// Default values for configuration.
const (
	DefaultCacheRoot     = "./cache"
	DefaultBaseURL       = "https://api.polygon.io"
	DefaultPageLimit     = 250
	DefaultRatePerSecond = 5.0
	DefaultFreshFor      = 7 * 24 * time.Hour

	// DirectResponseMaxBytes is the size threshold below which single-page
	// responses are returned inline as CSV instead of being cached.
	DirectResponseMaxBytes = 100 * 1024
)

// DefaultWorkers is the default number of concurrent batch writers.
var DefaultWorkers = min(runtime.GOMAXPROCS(0), 5)

// Config holds the validated runtime configuration.
type Config struct {
	CacheRoot string // Absolute path to the cache root directory
	APIKey    string // Remote API key (env var recommended; this is plaintext)
	BaseURL   string // Remote API base URL
	Workers   int    // Concurrent batch writers per fetch
	PageLimit int    // Page size requested from the remote API
	RateLimit float64
	FreshFor  time.Duration // Window during which a finalized entry answers without refetching

	MetadataBackend   schema.DatabaseBackend
	MetadataDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds raw configuration from all sources (file, env, flags)
// before validation. Viper unmarshals into this struct.
type ConfigRawInput struct {
	CacheRoot         string  `mapstructure:"cache-root"`
	APIKey            string  `mapstructure:"api-key"`
	BaseURL           string  `mapstructure:"base-url"`
	Workers           int     `mapstructure:"workers"`
	PageLimit         int     `mapstructure:"page-limit"`
	RateLimit         float64 `mapstructure:"rate-limit"`
	FreshFor          string  `mapstructure:"fresh-for"`
	MetadataBackend   string  `mapstructure:"metadata-backend"`
	MetadataDBConnect string  `mapstructure:"metadata-db-connect"`
}

// ProcessConfig validates raw input and populates the final Config.
func ProcessConfig(cfg *Config, input *ConfigRawInput) error {
	root := input.CacheRoot
	if root == "" {
		root = DefaultCacheRoot
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid cache root %q: %w", root, err)
	}
	cfg.CacheRoot = absRoot

	cfg.BaseURL = input.BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	cfg.Workers = input.Workers
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	cfg.PageLimit = input.PageLimit
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}

	cfg.RateLimit = input.RateLimit
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRatePerSecond
	}

	cfg.FreshFor = DefaultFreshFor
	if input.FreshFor != "" {
		d, err := time.ParseDuration(input.FreshFor)
		if err != nil {
			return fmt.Errorf("invalid fresh-for duration %q: %w", input.FreshFor, err)
		}
		cfg.FreshFor = d
	}

	backend := schema.DatabaseBackend(input.MetadataBackend)
	if backend == "" {
		backend = schema.FileBackend
	}
	if err := ValidateMetadataBackend(backend, input.MetadataDBConnect); err != nil {
		return err
	}
	cfg.MetadataBackend = backend
	cfg.MetadataDBConnect = input.MetadataDBConnect

	cfg.APIKey = input.APIKey
	return nil
}

// ValidateMetadataBackend checks that the backend is supported and that
// network backends carry a connection string.
func ValidateMetadataBackend(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.FileBackend, schema.SQLiteBackend:
		return nil
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("metadata backend %s requires a connection string", backend)
		}
		return nil
	default:
		return fmt.Errorf("unsupported metadata backend: %s. Must be file, sqlite, mysql, or postgresql", backend)
	}
}

// GetMetadataDBFilePath returns the default SQLite DB path for the metadata
// store, placed next to the partitions it indexes.
func GetMetadataDBFilePath(cacheRoot string) string {
	return filepath.Join(cacheRoot, ".metadata.db")
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}
