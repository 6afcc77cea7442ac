package config

import "time"

// RetentionConfig controls data retention and cleanup behavior.
type RetentionConfig struct {
	// RawRetentionDays is how many days to keep processed raw staging rows
	// before deleting them. Pending and failed rows are never purged.
	RawRetentionDays int `yaml:"raw_retention_days"`

	// LogRetentionDays is how many days to keep extract and transform log
	// rows before deleting them.
	LogRetentionDays int `yaml:"log_retention_days"`

	// JobRetentionDays is how many days to keep finished sync job rows
	// before deleting them. Active jobs are never purged.
	JobRetentionDays int `yaml:"job_retention_days"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		RawRetentionDays: 90,
		LogRetentionDays: 365,
		JobRetentionDays: 30,
		CleanupInterval:  12 * time.Hour,
	}
}
