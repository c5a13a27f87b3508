// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load() layers defaults, optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Store backend names accepted by Store.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the repository backend: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// SlotGranularityMinutes is the scheduling granularity slots are
	// truncated to.
	SlotGranularityMinutes int `koanf:"slot_granularity_minutes"`

	// HorizonDays bounds how far ahead a slot may be scheduled.
	HorizonDays int `koanf:"horizon_days"`

	// MatchRetryLimit bounds bucket rescans after a lost matching race.
	MatchRetryLimit int `koanf:"match_retry_limit"`

	// ToolSkipBound caps how many older entries tool-overlap preference
	// may skip before strict FIFO applies.
	ToolSkipBound int `koanf:"tool_skip_bound"`

	// SweepIntervalSeconds is the period of the safety-net sweep that
	// re-fires every live bucket.
	SweepIntervalSeconds int `koanf:"sweep_interval_seconds"`

	// TriggerQueueSize bounds the in-memory bucket trigger queue.
	TriggerQueueSize int `koanf:"trigger_queue_size"`

	// WorkerCount sets the number of matching workers.
	WorkerCount int `koanf:"worker_count"`

	// VideoBaseURL is the meeting host session rooms are created under.
	VideoBaseURL string `koanf:"video_base_url"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9090",
		Store:                  StoreMemory,
		SQLitePath:             "matcher.db",
		SlotGranularityMinutes: 60,
		HorizonDays:            30,
		MatchRetryLimit:        3,
		ToolSkipBound:          2,
		SweepIntervalSeconds:   30,
		TriggerQueueSize:       4096,
		WorkerCount:            runtime.NumCPU() * 2,
		VideoBaseURL:           "https://meet.jit.si",
	}
}
