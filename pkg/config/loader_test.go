package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	configPath := writeConfig(t, `
b2chat:
  base_url: https://api.b2chat.example
  timeout: 45s
rate_limit:
  min_interval: 250ms
  retry_attempts: 6
queue:
  worker_count: 3
sync:
  batch_size: 500
  time_range_preset: 30d
sla:
  pickup_target: 60
  provider_overrides:
    livechat:
      pickup_target: 30
office_hours:
  start: "08:00"
  end: "18:00"
  working_days: [1, 2, 3, 4, 5, 6]
  timezone: UTC
retention:
  raw_retention_days: 30
`)

	ctx := context.Background()
	cfg, err := Initialize(ctx, configPath)

	require.NoError(t, err)
	require.NotNil(t, cfg)

	// User values override defaults
	assert.Equal(t, "https://api.b2chat.example", cfg.B2Chat.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.B2Chat.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimit.MinInterval)
	assert.Equal(t, 6, cfg.RateLimit.RetryAttempts)
	assert.Equal(t, 3, cfg.Queue.WorkerCount)
	assert.Equal(t, 500, cfg.Sync.BatchSize)
	assert.Equal(t, "30d", cfg.Sync.TimeRangePreset)
	assert.Equal(t, int64(60), cfg.SLA.PickupTarget)
	assert.Equal(t, "08:00", cfg.OfficeHours.Start)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, cfg.OfficeHours.WorkingDays)
	assert.Equal(t, 30, cfg.Retention.RawRetentionDays)

	// Unset values keep built-in defaults
	assert.Equal(t, "B2CHAT_USERNAME", cfg.B2Chat.UsernameEnv)
	assert.Equal(t, 1, cfg.RateLimit.MaxInflight)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.RetryMaxDelay)
	assert.Equal(t, int64(300), cfg.SLA.FirstResponseTarget)
	assert.Equal(t, 365, cfg.Retention.LogRetentionDays)
}

func TestInitializeWithoutFile(t *testing.T) {
	// An empty path means the default location, which may be absent.
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	cfg, err := Initialize(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, DefaultB2ChatConfig().BaseURL, cfg.B2Chat.BaseURL)
	assert.Equal(t, DefaultQueueConfig().WorkerCount, cfg.Queue.WorkerCount)
	assert.Equal(t, DefaultSyncConfig().TimeRangePreset, cfg.Sync.TimeRangePreset)
}

func TestInitializeExplicitPathMissing(t *testing.T) {
	_, err := Initialize(context.Background(), "/nonexistent/b2sync.yaml")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestInitializeInvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `{{{`)

	_, err := Initialize(context.Background(), configPath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestInitializeValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
sync:
  time_range_preset: fortnight
`)

	_, err := Initialize(context.Background(), configPath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestInitializeExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_B2CHAT_URL", "https://staging.b2chat.example")
	configPath := writeConfig(t, `
b2chat:
  base_url: "{{.TEST_B2CHAT_URL}}"
`)

	cfg, err := Initialize(context.Background(), configPath)

	require.NoError(t, err)
	assert.Equal(t, "https://staging.b2chat.example", cfg.B2Chat.BaseURL)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
