package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/cancel"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/extract"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/queue"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/sla"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/transform"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/test/util"
)

// TestApp boots a complete pipeline instance for e2e testing: fake upstream,
// real engines, real store on an isolated database schema.
type TestApp struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Store     *store.Store
	Upstream  *FakeB2Chat
	Extract   *extract.Engine
	Transform *transform.Engine
	Registry  *cancel.Registry

	t *testing.T
}

// testAppConfig holds options accumulated before creating the TestApp.
type testAppConfig struct {
	batchSize   int
	preset      string
	officeHours *config.OfficeHoursConfig
	slaCfg      *config.SLAConfig
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithBatchSize sets the export page size, small values force paging.
func WithBatchSize(n int) TestAppOption {
	return func(c *testAppConfig) { c.batchSize = n }
}

// WithTimeRangePreset sets the default extraction window preset. The empty
// string hands window selection to the per-entity sync watermark.
func WithTimeRangePreset(p string) TestAppOption {
	return func(c *testAppConfig) { c.preset = p }
}

// WithOfficeHours sets a custom business-hours schedule.
func WithOfficeHours(cfg *config.OfficeHoursConfig) TestAppOption {
	return func(c *testAppConfig) { c.officeHours = cfg }
}

// NewTestApp creates a pipeline instance wired to a FakeB2Chat and an
// isolated, fully migrated schema. All cleanup is registered on t.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{
		batchSize:   100,
		preset:      string(models.TimeRangeFull),
		officeHours: config.DefaultOfficeHoursConfig(),
		slaCfg:      config.DefaultSLAConfig(),
	}
	for _, opt := range opts {
		opt(tc)
	}

	pool := util.SetupTestDatabase(t)
	st, err := store.New(pool)
	require.NoError(t, err)

	upstream := NewFakeB2Chat(t)
	client, err := b2chat.NewClient(b2chat.Config{
		BaseURL:  upstream.URL(),
		Username: fakeUsername,
		Password: fakePassword,
		Timeout:  10 * time.Second,
	})
	require.NoError(t, err)

	// Rate limiting tuned down so paging is fast; retries stay single-shot
	// so upstream failures surface immediately.
	callQueue := b2chat.NewCallQueue(b2chat.QueueConfig{
		MaxInflight:     4,
		MinInterval:     time.Millisecond,
		RetryAttempts:   1,
		RetryDelay:      time.Millisecond,
		RetryMaxDelay:   time.Millisecond,
		RetryMultiplier: 2,
	})

	syncCfg := &config.SyncConfig{
		BatchSize:       tc.batchSize,
		TimeRangePreset: tc.preset,
	}
	calculator, err := sla.NewCalculator(tc.slaCfg, tc.officeHours)
	require.NoError(t, err)

	registry := cancel.NewRegistry()

	cfg := &config.Config{
		RateLimit:   config.DefaultRateLimitConfig(),
		Queue:       testQueueConfig(),
		Sync:        syncCfg,
		SLA:         tc.slaCfg,
		OfficeHours: tc.officeHours,
		Retention:   config.DefaultRetentionConfig(),
	}

	return &TestApp{
		Config:    cfg,
		Pool:      pool,
		Store:     st,
		Upstream:  upstream,
		Extract:   extract.New(st, client, callQueue, registry, syncCfg),
		Transform: transform.New(st, registry, calculator, syncCfg),
		Registry:  registry,
		t:         t,
	}
}

// StartWorkerPool starts a worker pool running the real job executor over
// this app's engines. The pool is stopped with the test.
func (a *TestApp) StartWorkerPool(workers int) *queue.WorkerPool {
	a.t.Helper()

	queueCfg := *a.Config.Queue
	queueCfg.WorkerCount = workers

	executor := queue.NewExecutor(a.Store, a.Extract, a.Transform)
	pool := queue.NewWorkerPool(fmt.Sprintf("e2e-%s", a.t.Name()), a.Store, &queueCfg, executor)
	require.NoError(a.t, pool.Start(context.Background()))
	a.t.Cleanup(pool.Stop)
	return pool
}

// testQueueConfig returns queue settings for fast test turnaround. Orphan
// detection intervals are long so the background scan never interferes.
func testQueueConfig() *config.QueueConfig {
	return &config.QueueConfig{
		WorkerCount:             1,
		MaxConcurrentJobs:       10,
		PollInterval:            50 * time.Millisecond,
		PollIntervalJitter:      0,
		JobTimeout:              30 * time.Second,
		HeartbeatInterval:       100 * time.Millisecond,
		GracefulShutdownTimeout: 10 * time.Second,
		OrphanDetectionInterval: time.Minute,
		OrphanThreshold:         5 * time.Minute,
	}
}

// awaitCondition polls until cond returns true or the timeout elapses.
func awaitCondition(t *testing.T, timeout, interval time.Duration, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(interval)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
