package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestConfig() *Config {
	return &Config{
		B2Chat:      DefaultB2ChatConfig(),
		RateLimit:   DefaultRateLimitConfig(),
		Queue:       DefaultQueueConfig(),
		Sync:        DefaultSyncConfig(),
		SLA:         DefaultSLAConfig(),
		OfficeHours: DefaultOfficeHoursConfig(),
		Retention:   DefaultRetentionConfig(),
	}
}

func TestValidateDefaults(t *testing.T) {
	err := NewValidator(defaultTestConfig()).ValidateAll()
	require.NoError(t, err, "built-in defaults must validate")
}

func TestValidateAll(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "missing base url",
			mutate: func(c *Config) { c.B2Chat.BaseURL = "" },
			errMsg: "base_url",
		},
		{
			name:   "base url without scheme",
			mutate: func(c *Config) { c.B2Chat.BaseURL = "api.b2chat.io" },
			errMsg: "base_url",
		},
		{
			name:   "missing username env name",
			mutate: func(c *Config) { c.B2Chat.UsernameEnv = "" },
			errMsg: "username_env",
		},
		{
			name:   "zero timeout",
			mutate: func(c *Config) { c.B2Chat.Timeout = 0 },
			errMsg: "timeout",
		},
		{
			name:   "zero inflight slots",
			mutate: func(c *Config) { c.RateLimit.MaxInflight = 0 },
			errMsg: "max_inflight",
		},
		{
			name:   "negative min interval",
			mutate: func(c *Config) { c.RateLimit.MinInterval = -1 },
			errMsg: "min_interval",
		},
		{
			name:   "zero retry attempts",
			mutate: func(c *Config) { c.RateLimit.RetryAttempts = 0 },
			errMsg: "retry_attempts",
		},
		{
			name:   "max delay below base delay",
			mutate: func(c *Config) { c.RateLimit.RetryMaxDelay = c.RateLimit.RetryDelay / 2 },
			errMsg: "retry_max_delay",
		},
		{
			name:   "multiplier below one",
			mutate: func(c *Config) { c.RateLimit.RetryMultiplier = 0.5 },
			errMsg: "retry_multiplier",
		},
		{
			name:   "zero workers",
			mutate: func(c *Config) { c.Queue.WorkerCount = 0 },
			errMsg: "worker_count",
		},
		{
			name:   "jitter at poll interval",
			mutate: func(c *Config) { c.Queue.PollIntervalJitter = c.Queue.PollInterval },
			errMsg: "poll_interval_jitter",
		},
		{
			name:   "zero job timeout",
			mutate: func(c *Config) { c.Queue.JobTimeout = 0 },
			errMsg: "job_timeout",
		},
		{
			name:   "zero batch size",
			mutate: func(c *Config) { c.Sync.BatchSize = 0 },
			errMsg: "batch_size",
		},
		{
			name:   "unknown preset",
			mutate: func(c *Config) { c.Sync.TimeRangePreset = "fortnight" },
			errMsg: "time_range_preset",
		},
		{
			name:   "custom preset as global default",
			mutate: func(c *Config) { c.Sync.TimeRangePreset = "custom" },
			errMsg: "time_range_preset",
		},
		{
			name: "auto sync without interval",
			mutate: func(c *Config) {
				c.Sync.AutoSyncEnabled = true
				c.Sync.AutoSyncInterval = 0
			},
			errMsg: "auto_sync_interval",
		},
		{
			name:   "negative pickup target",
			mutate: func(c *Config) { c.SLA.PickupTarget = -1 },
			errMsg: "pickup_target",
		},
		{
			name:   "compliance percent above 100",
			mutate: func(c *Config) { c.SLA.CompliancePct = 101 },
			errMsg: "compliance_pct",
		},
		{
			name: "override for unknown provider",
			mutate: func(c *Config) {
				c.SLA.ProviderOverrides = map[string]SLATargets{"smoke-signals": {PickupTarget: 30}}
			},
			errMsg: "provider_overrides",
		},
		{
			name: "negative target in priority override",
			mutate: func(c *Config) {
				c.SLA.PriorityOverrides = map[string]SLATargets{"urgent": {ResolutionTarget: -5}}
			},
			errMsg: "resolution_target",
		},
		{
			name:   "malformed start time",
			mutate: func(c *Config) { c.OfficeHours.Start = "9am" },
			errMsg: "start",
		},
		{
			name:   "end before start",
			mutate: func(c *Config) { c.OfficeHours.End = "08:00" },
			errMsg: "end",
		},
		{
			name:   "no working days",
			mutate: func(c *Config) { c.OfficeHours.WorkingDays = nil },
			errMsg: "working_days",
		},
		{
			name:   "working day out of range",
			mutate: func(c *Config) { c.OfficeHours.WorkingDays = []int{1, 8} },
			errMsg: "working_days",
		},
		{
			name:   "repeated working day",
			mutate: func(c *Config) { c.OfficeHours.WorkingDays = []int{1, 1} },
			errMsg: "working_days",
		},
		{
			name:   "unknown timezone",
			mutate: func(c *Config) { c.OfficeHours.Timezone = "Mars/Olympus" },
			errMsg: "timezone",
		},
		{
			name: "malformed holiday date",
			mutate: func(c *Config) {
				c.OfficeHours.Holidays = []HolidayEntry{{Name: "bad", Date: "25/12"}}
			},
			errMsg: "holidays",
		},
		{
			name:   "zero raw retention",
			mutate: func(c *Config) { c.Retention.RawRetentionDays = 0 },
			errMsg: "raw_retention_days",
		},
		{
			name:   "zero cleanup interval",
			mutate: func(c *Config) { c.Retention.CleanupInterval = 0 },
			errMsg: "cleanup_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultTestConfig()
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateHolidayFormats(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.OfficeHours.Holidays = []HolidayEntry{
		{Name: "christmas", Date: "12-25"},
		{Name: "easter 2025", Date: "2025-04-20"},
	}

	require.NoError(t, NewValidator(cfg).ValidateAll())
}
