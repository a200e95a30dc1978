// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"runtime"
	"time"
)

// Storage drivers understood by the service.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory queue of completed rounds.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of round evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the round-submission dedupe cache.
	DedupeSize int `koanf:"dedupe_size"`

	// EvaluationConcurrency bounds the player x badge fan-out of one round.
	EvaluationConcurrency int `koanf:"evaluation_concurrency"`

	// HistoryTimeoutMS caps historical aggregation per round.
	HistoryTimeoutMS int `koanf:"history_timeout_ms"`

	// ProgressRetryLimit bounds optimistic progress update retries.
	ProgressRetryLimit int `koanf:"progress_retry_limit"`

	// StorageDriver is memory or sqlite.
	StorageDriver string `koanf:"storage_driver"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// CatalogPath points at a YAML badge catalog; empty uses the built-in catalog.
	CatalogPath string `koanf:"catalog_path"`

	// TimeZone is the default IANA zone for time-window badges.
	TimeZone string `koanf:"time_zone"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		EventQueueSize:        10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		DedupeSize:            100_000,
		EvaluationConcurrency: 16,
		HistoryTimeoutMS:      2_000,
		ProgressRetryLimit:    5,
		StorageDriver:         StorageMemory,
		SQLitePath:            "birdie.db",
		TimeZone:              "UTC",
	}
}

// HistoryTimeout returns HistoryTimeoutMS as a duration.
func (c *Config) HistoryTimeout() time.Duration {
	return time.Duration(c.HistoryTimeoutMS) * time.Millisecond
}
