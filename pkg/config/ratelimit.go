package config

import "time"

// RateLimitConfig controls pacing and retry of upstream API calls.
// The export endpoints throttle aggressively, so the defaults keep a
// single call in flight with spacing between starts.
type RateLimitConfig struct {
	// MaxInflight is how many upstream calls may run at once.
	MaxInflight int `yaml:"max_inflight"`

	// MinInterval is the minimum delay between call starts.
	MinInterval time.Duration `yaml:"min_interval"`

	// RetryAttempts is the total number of attempts per call, including
	// the first.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the initial backoff delay after a retryable failure.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// RetryMaxDelay caps the exponential backoff delay.
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`

	// RetryMultiplier is the backoff growth factor.
	RetryMultiplier float64 `yaml:"retry_multiplier"`
}

// DefaultRateLimitConfig returns the built-in rate limit defaults.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MaxInflight:     1,
		MinInterval:     500 * time.Millisecond,
		RetryAttempts:   4,
		RetryDelay:      1 * time.Second,
		RetryMaxDelay:   30 * time.Second,
		RetryMultiplier: 2.0,
	}
}
