package config

// Config is the umbrella configuration object returned by Initialize and
// used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// Upstream API connection settings
	B2Chat *B2ChatConfig

	// Upstream call pacing and retry settings
	RateLimit *RateLimitConfig

	// Sync job queue and worker pool settings
	Queue *QueueConfig

	// Extract/transform run defaults
	Sync *SyncConfig

	// Service-level targets and overrides
	SLA *SLAConfig

	// Business-hours calendar
	OfficeHours *OfficeHoursConfig

	// Raw staging and log retention
	Retention *RetentionConfig
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}
