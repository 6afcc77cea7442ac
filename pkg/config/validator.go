package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// ConfigValidator validates configuration comprehensively with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateB2Chat(); err != nil {
		return fmt.Errorf("b2chat validation failed: %w", err)
	}

	if err := v.validateRateLimit(); err != nil {
		return fmt.Errorf("rate limit validation failed: %w", err)
	}

	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateSync(); err != nil {
		return fmt.Errorf("sync validation failed: %w", err)
	}

	if err := v.validateSLA(); err != nil {
		return fmt.Errorf("sla validation failed: %w", err)
	}

	if err := v.validateOfficeHours(); err != nil {
		return fmt.Errorf("office hours validation failed: %w", err)
	}

	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateB2Chat() error {
	c := v.cfg.B2Chat

	if c.BaseURL == "" {
		return NewValidationError("b2chat", "base_url", ErrMissingRequiredField)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewValidationError("b2chat", "base_url", fmt.Errorf("%w: %s", ErrInvalidValue, c.BaseURL))
	}

	// Credential env var names must be set; the values themselves are only
	// needed once a run talks to the upstream, so they are checked at
	// client construction instead.
	if c.UsernameEnv == "" {
		return NewValidationError("b2chat", "username_env", ErrMissingRequiredField)
	}
	if c.PasswordEnv == "" {
		return NewValidationError("b2chat", "password_env", ErrMissingRequiredField)
	}

	if c.Timeout <= 0 {
		return NewValidationError("b2chat", "timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	return nil
}

func (v *ConfigValidator) validateRateLimit() error {
	c := v.cfg.RateLimit

	if c.MaxInflight < 1 {
		return NewValidationError("rate_limit", "max_inflight", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if c.MinInterval < 0 {
		return NewValidationError("rate_limit", "min_interval", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if c.RetryAttempts < 1 {
		return NewValidationError("rate_limit", "retry_attempts", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if c.RetryDelay <= 0 {
		return NewValidationError("rate_limit", "retry_delay", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.RetryMaxDelay < c.RetryDelay {
		return NewValidationError("rate_limit", "retry_max_delay", fmt.Errorf("%w: must be at least retry_delay", ErrInvalidValue))
	}
	if c.RetryMultiplier < 1 {
		return NewValidationError("rate_limit", "retry_multiplier", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}

	return nil
}

func (v *ConfigValidator) validateQueue() error {
	c := v.cfg.Queue

	if c.WorkerCount < 1 {
		return NewValidationError("queue", "worker_count", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if c.MaxConcurrentJobs < 1 {
		return NewValidationError("queue", "max_concurrent_jobs", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if c.PollInterval <= 0 {
		return NewValidationError("queue", "poll_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.PollIntervalJitter < 0 || c.PollIntervalJitter >= c.PollInterval {
		return NewValidationError("queue", "poll_interval_jitter", fmt.Errorf("%w: must be non-negative and below poll_interval", ErrInvalidValue))
	}
	if c.JobTimeout <= 0 {
		return NewValidationError("queue", "job_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.HeartbeatInterval <= 0 {
		return NewValidationError("queue", "heartbeat_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.HeartbeatInterval >= c.OrphanThreshold {
		return NewValidationError("queue", "heartbeat_interval", fmt.Errorf("%w: must be below orphan_threshold", ErrInvalidValue))
	}
	if c.GracefulShutdownTimeout <= 0 {
		return NewValidationError("queue", "graceful_shutdown_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.OrphanDetectionInterval <= 0 {
		return NewValidationError("queue", "orphan_detection_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.OrphanThreshold <= 0 {
		return NewValidationError("queue", "orphan_threshold", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	return nil
}

func (v *ConfigValidator) validateSync() error {
	c := v.cfg.Sync

	if c.BatchSize < 1 {
		return NewValidationError("sync", "batch_size", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}

	preset := models.TimeRangePreset(c.TimeRangePreset)
	if !preset.IsValid() {
		return NewValidationError("sync", "time_range_preset", fmt.Errorf("%w: %s", ErrInvalidValue, c.TimeRangePreset))
	}
	// Custom needs explicit dates, which only per-run options carry.
	if preset == models.TimeRangeCustom {
		return NewValidationError("sync", "time_range_preset", fmt.Errorf("%w: custom is a per-run option", ErrInvalidValue))
	}

	if c.MaxPages < 0 {
		return NewValidationError("sync", "max_pages", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if c.AutoSyncEnabled && c.AutoSyncInterval <= 0 {
		return NewValidationError("sync", "auto_sync_interval", fmt.Errorf("%w: must be positive when auto sync is enabled", ErrInvalidValue))
	}

	return nil
}

func (v *ConfigValidator) validateSLA() error {
	c := v.cfg.SLA

	if err := validateTargets("sla", c.SLATargets); err != nil {
		return err
	}
	if c.CompliancePct < 0 || c.CompliancePct > 100 {
		return NewValidationError("sla", "compliance_pct", fmt.Errorf("%w: must be between 0 and 100", ErrInvalidValue))
	}

	for provider, targets := range c.ProviderOverrides {
		if !models.Provider(provider).IsValid() {
			return NewValidationError("sla", "provider_overrides", fmt.Errorf("%w: unknown provider %s", ErrInvalidValue, provider))
		}
		if err := validateTargets("sla.provider_overrides."+provider, targets); err != nil {
			return err
		}
	}
	for priority, targets := range c.PriorityOverrides {
		if err := validateTargets("sla.priority_overrides."+priority, targets); err != nil {
			return err
		}
	}

	return nil
}

func validateTargets(section string, t SLATargets) error {
	if t.PickupTarget < 0 {
		return NewValidationError(section, "pickup_target", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if t.FirstResponseTarget < 0 {
		return NewValidationError(section, "first_response_target", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if t.AvgResponseTarget < 0 {
		return NewValidationError(section, "avg_response_target", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if t.ResolutionTarget < 0 {
		return NewValidationError(section, "resolution_target", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateOfficeHours() error {
	c := v.cfg.OfficeHours

	start, err := time.Parse("15:04", c.Start)
	if err != nil {
		return NewValidationError("office_hours", "start", fmt.Errorf("%w: want HH:MM, got %s", ErrInvalidValue, c.Start))
	}
	end, err := time.Parse("15:04", c.End)
	if err != nil {
		return NewValidationError("office_hours", "end", fmt.Errorf("%w: want HH:MM, got %s", ErrInvalidValue, c.End))
	}
	if !end.After(start) {
		return NewValidationError("office_hours", "end", fmt.Errorf("%w: end must be after start", ErrInvalidValue))
	}

	if len(c.WorkingDays) == 0 {
		return NewValidationError("office_hours", "working_days", ErrMissingRequiredField)
	}
	seen := make(map[int]bool, len(c.WorkingDays))
	for _, day := range c.WorkingDays {
		if day < 1 || day > 7 {
			return NewValidationError("office_hours", "working_days", fmt.Errorf("%w: day %d outside 1..7", ErrInvalidValue, day))
		}
		if seen[day] {
			return NewValidationError("office_hours", "working_days", fmt.Errorf("%w: day %d repeated", ErrInvalidValue, day))
		}
		seen[day] = true
	}

	if c.Timezone == "" {
		return NewValidationError("office_hours", "timezone", ErrMissingRequiredField)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return NewValidationError("office_hours", "timezone", fmt.Errorf("%w: %s", ErrInvalidValue, c.Timezone))
	}

	for _, holiday := range c.Holidays {
		if !validHolidayDate(holiday.Date) {
			return NewValidationError("office_hours", "holidays", fmt.Errorf("%w: want YYYY-MM-DD or MM-DD, got %s", ErrInvalidValue, holiday.Date))
		}
	}

	return nil
}

func validHolidayDate(date string) bool {
	if _, err := time.Parse("2006-01-02", date); err == nil {
		return true
	}
	if _, err := time.Parse("01-02", date); err == nil {
		return true
	}
	return false
}

func (v *ConfigValidator) validateRetention() error {
	c := v.cfg.Retention

	if c.RawRetentionDays < 1 {
		return NewValidationError("retention", "raw_retention_days", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if c.LogRetentionDays < 1 {
		return NewValidationError("retention", "log_retention_days", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if c.JobRetentionDays < 1 {
		return NewValidationError("retention", "job_retention_days", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if c.CleanupInterval <= 0 {
		return NewValidationError("retention", "cleanup_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	return nil
}
