package config

import "time"

// SyncConfig holds defaults for extract and transform runs. Per-run options
// on a job override these.
type SyncConfig struct {
	// BatchSize is the page size for upstream fetches.
	BatchSize int `yaml:"batch_size"`

	// TimeRangePreset is the default extraction window
	// (1d, 7d, 30d, 90d, custom, full).
	TimeRangePreset string `yaml:"time_range_preset"`

	// MaxPages caps pages per run. 0 means the preset default: unbounded
	// for full, 100 otherwise.
	MaxPages int `yaml:"max_pages"`

	// AutoSyncEnabled turns on the interval scheduler in the worker daemon.
	AutoSyncEnabled bool `yaml:"auto_sync_enabled"`

	// AutoSyncInterval is how often the scheduler enqueues a pipeline job.
	AutoSyncInterval time.Duration `yaml:"auto_sync_interval"`
}

// DefaultSyncConfig returns the built-in run defaults.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		BatchSize:        1000,
		TimeRangePreset:  "7d",
		MaxPages:         0,
		AutoSyncEnabled:  false,
		AutoSyncInterval: 30 * time.Minute,
	}
}
