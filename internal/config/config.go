// Package config defines the JSON-serializable configuration model for the
// loader. Decoding is performed by the standard library; field names in Go
// mirror the JSON structure used in config files.
//
// Example (trimmed):
//
//	{
//	  "job":       "globalshop_orders",
//	  "store":     { "kind": "fs", "root": "local_data", "container": "globalshop-raw" },
//	  "warehouse": { "kind": "postgres", "dsn": "postgresql://...", "table": "dataw.orders" },
//	  "parser":    { "encoding": "utf-8" },
//	  "runtime":   { "workers": 4, "read_timeout_seconds": 60, "load_timeout_seconds": 120 }
//	}
//
// Environment variables override file values 12-factor style; see ApplyEnv.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config is the top-level object decoded from a config file.
type Config struct {
	// Job names this loader instance; used for metrics labeling and run logs.
	Job string `json:"job"`

	// Store describes where input objects come from.
	Store StoreConfig `json:"store"`

	// Warehouse describes the sink table that batches are appended to.
	Warehouse WarehouseConfig `json:"warehouse"`

	// Parser configures how file bytes become rows.
	Parser ParserConfig `json:"parser"`

	// Runtime controls concurrency, sampling, and timeouts.
	Runtime RuntimeConfig `json:"runtime"`
}

// StoreConfig selects the object store implementation.
type StoreConfig struct {
	// Kind selects the store: "fs" (local directory tree) or "s3".
	Kind string `json:"kind"`

	// Container is the bucket (s3) or top-level directory (fs) holding the
	// dated folders.
	Container string `json:"container"`

	// Root is the local directory for the "fs" kind.
	Root string `json:"root"`

	// Region is the AWS region for the "s3" kind; env fallbacks apply.
	Region string `json:"region"`

	// Endpoint overrides the S3 endpoint (MinIO, localstack).
	Endpoint string `json:"endpoint"`
}

// WarehouseConfig configures the sink.
type WarehouseConfig struct {
	// Kind selects a registered backend: "postgres" or "sqlite".
	Kind string `json:"kind"`

	// DSN is the backend connection string.
	DSN string `json:"dsn"`

	// Table is the fully qualified target table (e.g. "dataw.orders").
	Table string `json:"table"`

	// AutoCreateTable creates the table on startup when missing. Local/dev
	// convenience; leave off in production.
	AutoCreateTable bool `json:"auto_create_table"`
}

// ParserConfig configures CSV decoding.
type ParserConfig struct {
	// Comma is the field delimiter; "," when empty. Only the first rune is
	// used.
	Comma string `json:"comma"`

	// Encoding names the input charset; empty means UTF-8.
	Encoding string `json:"encoding"`

	// NoTrimSpace disables per-cell whitespace trimming.
	NoTrimSpace bool `json:"no_trim_space"`
}

// CommaRune returns the configured delimiter as a rune, defaulting to ','.
func (p ParserConfig) CommaRune() rune {
	for _, r := range p.Comma {
		return r
	}
	return ','
}

// RuntimeConfig controls concurrency, sampling, and I/O timeouts.
type RuntimeConfig struct {
	// Workers bounds how many files a backfill processes concurrently.
	// Zero or negative means sequential.
	Workers int `json:"workers"`

	// MaxRows caps validated rows collected per file (0 = no cap). Supports
	// the "sample first N" reprocessing mode.
	MaxRows int `json:"max_rows"`

	// ReadTimeoutSeconds bounds one object-store read (0 = no timeout).
	ReadTimeoutSeconds int `json:"read_timeout_seconds"`

	// LoadTimeoutSeconds bounds one warehouse load call (0 = no timeout).
	LoadTimeoutSeconds int `json:"load_timeout_seconds"`
}

// Load reads and decodes the config file at path, then applies environment
// overrides.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var c Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	c.ApplyEnv()
	return c, nil
}

// ApplyEnv overlays SALESLOAD_* environment variables onto c. Only variables
// that are set replace file values.
func (c *Config) ApplyEnv() {
	setString(&c.Job, "SALESLOAD_JOB")
	setString(&c.Store.Kind, "SALESLOAD_STORE_KIND")
	setString(&c.Store.Container, "SALESLOAD_CONTAINER")
	setString(&c.Store.Root, "SALESLOAD_STORE_ROOT")
	setString(&c.Store.Region, "SALESLOAD_S3_REGION")
	setString(&c.Store.Endpoint, "SALESLOAD_S3_ENDPOINT")
	setString(&c.Warehouse.Kind, "SALESLOAD_WAREHOUSE_KIND")
	setString(&c.Warehouse.DSN, "SALESLOAD_WAREHOUSE_DSN")
	setString(&c.Warehouse.Table, "SALESLOAD_WAREHOUSE_TABLE")
	setInt(&c.Runtime.Workers, "SALESLOAD_WORKERS")
	setInt(&c.Runtime.MaxRows, "SALESLOAD_MAX_ROWS")
	setInt(&c.Runtime.ReadTimeoutSeconds, "SALESLOAD_READ_TIMEOUT_SECONDS")
	setInt(&c.Runtime.LoadTimeoutSeconds, "SALESLOAD_LOAD_TIMEOUT_SECONDS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			*dst = n
		}
	}
}
