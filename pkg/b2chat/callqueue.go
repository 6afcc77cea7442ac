package b2chat

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// QueueConfig controls pacing and retry behavior for upstream calls.
type QueueConfig struct {
	// MaxInflight is how many calls may run at once; the export API
	// effectively requires 1
	MaxInflight int
	// MinInterval is the minimum delay between call starts
	MinInterval time.Duration
	// RetryAttempts is the total number of attempts per call, including
	// the first
	RetryAttempts int
	// RetryDelay is the initial backoff delay
	RetryDelay time.Duration
	// RetryMaxDelay caps the backoff delay
	RetryMaxDelay time.Duration
	// RetryMultiplier is the backoff growth factor
	RetryMultiplier float64
}

// DefaultQueueConfig returns the queue settings used when none are
// configured.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MaxInflight:     1,
		MinInterval:     500 * time.Millisecond,
		RetryAttempts:   4,
		RetryDelay:      1 * time.Second,
		RetryMaxDelay:   30 * time.Second,
		RetryMultiplier: 2.0,
	}
}

// CallQueue serializes upstream calls: at most MaxInflight at a time, at
// least MinInterval between starts, with exponential backoff on throttling
// and server errors. One queue is shared by every caller in the process, so
// it carries no per-run state; callers time their own calls.
type CallQueue struct {
	cfg     QueueConfig
	limiter *rate.Limiter
	slots   chan struct{}
}

// NewCallQueue creates a CallQueue from the given config. Zero values fall
// back to defaults.
func NewCallQueue(cfg QueueConfig) *CallQueue {
	defaults := DefaultQueueConfig()
	if cfg.MaxInflight < 1 {
		cfg.MaxInflight = defaults.MaxInflight
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = defaults.RetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = defaults.RetryMaxDelay
	}
	if cfg.RetryMultiplier <= 1 {
		cfg.RetryMultiplier = defaults.RetryMultiplier
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &CallQueue{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		slots:   make(chan struct{}, cfg.MaxInflight),
	}
}

// Do runs fn through the queue: it waits for an inflight slot and the pacing
// interval, then executes fn, retrying with backoff while the error is
// retryable. A cancelled context aborts promptly, including mid-wait.
func (q *CallQueue) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	select {
	case q.slots <- struct{}{}:
		defer func() { <-q.slots }()
	case <-ctx.Done():
		return ctx.Err()
	}

	policy := q.newBackOff(ctx)
	attempt := 0
	operation := func() error {
		if err := q.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		attempt++

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		slog.Warn("Upstream call failed, will retry",
			"call", name, "attempt", attempt, "max_attempts", q.cfg.RetryAttempts, "error", err)
		return err
	}

	return backoff.Retry(operation, policy)
}

func (q *CallQueue) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = q.cfg.RetryDelay
	bo.MaxInterval = q.cfg.RetryMaxDelay
	bo.Multiplier = q.cfg.RetryMultiplier
	bo.MaxElapsedTime = 0
	bo.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(q.cfg.RetryAttempts-1)), ctx)
}

// IsRetryable reports whether an upstream call error may succeed on a later
// attempt: throttling (429), server errors (5xx) and network timeouts are
// retryable; cancellation and client-side errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}
