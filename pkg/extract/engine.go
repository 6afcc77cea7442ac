// Package extract drives the paged ingestion of B2Chat exports into the raw
// staging tables. A run fetches pages through the rate-limited call queue,
// stages every record with provenance, and records its outcome in an
// ExtractLog; normalization happens later, in the transform engine.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/cancel"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

// defaultMaxPagesWindowed caps windowed runs that do not set MaxPages. Full
// syncs default to unbounded because they are expected to walk the whole
// export.
const defaultMaxPagesWindowed = 100

// ContactFilter narrows which contacts a run is interested in. It is
// persisted in the run metadata so downstream consumers can filter; the
// export endpoint itself cannot filter server-side.
type ContactFilter struct {
	Mobile     string `json:"mobile,omitempty"`
	UpstreamID string `json:"upstream_id,omitempty"`
}

// Options are the per-run knobs. Zero values fall back to the configured
// sync defaults.
type Options struct {
	// SyncID is the pre-allocated run id. Empty means generate one; callers
	// that must correlate the run before it starts (the job worker) set it.
	SyncID string

	// BatchSize is the page size requested from the export endpoints.
	BatchSize int

	// FullSync forces the full preset regardless of TimeRangePreset.
	FullSync bool

	// TimeRangePreset picks the date window. Empty means the configured
	// default.
	TimeRangePreset models.TimeRangePreset

	// StartDate / EndDate bound a custom window. The preset wins when both
	// are given.
	StartDate *time.Time
	EndDate   *time.Time

	// MaxPages caps pages per entity type. 0 means unbounded for full syncs
	// and defaultMaxPagesWindowed otherwise.
	MaxPages int

	// ContactFilter is recorded in run metadata when set.
	ContactFilter *ContactFilter
}

// Result summarizes a finished run for callers that do not want to re-read
// the ExtractLog.
type Result struct {
	SyncID   string
	Status   models.RunStatus
	Counters models.RunCounters
	APICalls int
}

// Engine runs extractions. It owns inserts into the raw staging tables and
// its own ExtractLog rows; it never touches normalized entities.
type Engine struct {
	store    *store.Store
	client   *b2chat.Client
	queue    *b2chat.CallQueue
	registry *cancel.Registry
	defaults *config.SyncConfig
}

// New creates an extract Engine.
func New(st *store.Store, client *b2chat.Client, queue *b2chat.CallQueue, registry *cancel.Registry, defaults *config.SyncConfig) *Engine {
	if st == nil {
		panic("extract.New: store must not be nil")
	}
	if client == nil {
		panic("extract.New: client must not be nil")
	}
	if queue == nil {
		panic("extract.New: queue must not be nil")
	}
	if registry == nil {
		panic("extract.New: registry must not be nil")
	}
	if defaults == nil {
		defaults = config.DefaultSyncConfig()
	}
	return &Engine{
		store:    st,
		client:   client,
		queue:    queue,
		registry: registry,
		defaults: defaults,
	}
}

// Run extracts one entity type (or both, for EntityAll) into staging. The
// run is registered with the cancel registry under its sync id; cancellation
// is observed at page boundaries and finalizes the log as cancelled rather
// than failed. Partial progress stays staged either way, so re-running is
// always safe.
func (e *Engine) Run(ctx context.Context, entity models.EntityType, opts Options) (*Result, error) {
	if !entity.IsValid() {
		return nil, fmt.Errorf("invalid entity type %q", entity)
	}
	opts = e.withDefaults(opts)

	syncID := opts.SyncID
	if syncID == "" {
		syncID = uuid.New().String()
	}
	runCtx, finish := e.registry.Register(ctx, syncID)
	defer finish()

	logger := slog.With("sync_id", syncID, "entity_type", entity)

	extractLog := &models.ExtractLog{
		SyncID:     syncID,
		EntityType: entity,
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
		Metadata:   map[string]any{},
	}
	if opts.ContactFilter != nil {
		extractLog.Metadata["contact_filter"] = map[string]any{
			"mobile":      opts.ContactFilter.Mobile,
			"upstream_id": opts.ContactFilter.UpstreamID,
		}
	}
	if err := e.store.CreateExtractLog(ctx, extractLog); err != nil {
		return nil, fmt.Errorf("create extract log: %w", err)
	}
	logger.Info("Extract run started",
		"preset", opts.TimeRangePreset, "batch_size", opts.BatchSize, "max_pages", opts.MaxPages)

	started := time.Now()
	samples := &callSamples{}
	runErr := e.runEntities(runCtx, logger, extractLog, entity, opts, samples)
	e.attachPerformance(extractLog, time.Since(started), samples.elapsed)

	switch {
	case runErr == nil:
		extractLog.Status = models.RunStatusCompleted
	case cancel.IsCancelled(runErr):
		extractLog.Status = models.RunStatusCancelled
	default:
		extractLog.Status = models.RunStatusFailed
		msg := runErr.Error()
		extractLog.ErrorMessage = &msg
	}
	now := time.Now().UTC()
	extractLog.CompletedAt = &now

	// Finalize with a background context: the run context may already be
	// cancelled, and a terminal log must be written regardless.
	finalCtx, cancelFinal := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelFinal()
	if err := e.store.UpdateExtractLog(finalCtx, extractLog); err != nil {
		logger.Error("Failed to finalize extract log", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("finalize extract log: %w", err)
		}
	}

	if runErr == nil {
		e.advanceSyncState(finalCtx, logger, entity, extractLog.StartedAt)
	}

	logger.Info("Extract run finished",
		"status", extractLog.Status,
		"records_fetched", extractLog.Counters.Fetched,
		"api_calls", extractLog.APICallCount)

	return &Result{
		SyncID:   syncID,
		Status:   extractLog.Status,
		Counters: extractLog.Counters,
		APICalls: extractLog.APICallCount,
	}, runErr
}

// withDefaults fills unset options from the configured sync defaults.
func (e *Engine) withDefaults(opts Options) Options {
	if opts.BatchSize <= 0 {
		opts.BatchSize = e.defaults.BatchSize
	}
	if opts.FullSync {
		opts.TimeRangePreset = models.TimeRangeFull
	}
	if opts.TimeRangePreset == "" {
		opts.TimeRangePreset = models.TimeRangePreset(e.defaults.TimeRangePreset)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = e.defaults.MaxPages
	}
	return opts
}

// callSamples accumulates the elapsed time of each successful upstream call
// made by one run. The call queue is shared by every engine in the process,
// so response-time telemetry is collected per run rather than on the queue.
type callSamples struct {
	elapsed []time.Duration
}

func (c *callSamples) record(d time.Duration) {
	c.elapsed = append(c.elapsed, d)
}

// runEntities extracts every concrete entity the run covers, in a fixed
// order so contacts land before the chats that reference them.
func (e *Engine) runEntities(ctx context.Context, logger *slog.Logger, extractLog *models.ExtractLog, entity models.EntityType, opts Options, samples *callSamples) error {
	for _, concrete := range []models.EntityType{models.EntityContacts, models.EntityChats} {
		if !entity.Includes(concrete) {
			continue
		}
		if err := e.extractEntity(ctx, logger, extractLog, concrete, opts, samples); err != nil {
			return err
		}
	}
	return nil
}

// extractEntity runs the page loop for one concrete entity type.
func (e *Engine) extractEntity(ctx context.Context, logger *slog.Logger, extractLog *models.ExtractLog, entity models.EntityType, opts Options, samples *callSamples) error {
	window, err := e.resolveWindow(ctx, entity, opts)
	if err != nil {
		return err
	}

	entityMeta := map[string]any{"window": window.Metadata()}
	extractLog.Metadata[string(entity)] = entityMeta

	maxPages := opts.MaxPages
	if maxPages <= 0 && !window.IsFull() {
		maxPages = defaultMaxPagesWindowed
	}

	logger.Info("Extracting entity", "entity", entity,
		"full", window.IsFull(), "max_pages", maxPages)

	stats := NewStats()
	checkpoint := &models.SyncCheckpoint{
		SyncID:     extractLog.SyncID,
		EntityType: entity,
		Status:     models.RunStatusRunning,
	}

	offset := 0
	truncated := false
	var loopErr error

	for page := 1; ; page++ {
		if loopErr = cancel.Check(ctx, extractLog.SyncID); loopErr != nil {
			break
		}

		fetchedAt := time.Now().UTC()
		var data pageData
		data, loopErr = e.fetchPage(ctx, extractLog.SyncID, entity, window, opts, page, offset, stats, samples, fetchedAt)
		if loopErr != nil {
			break
		}
		extractLog.APICallCount++

		inserted, err := e.store.InsertRawBatch(ctx, entity, data.rows)
		if err != nil {
			loopErr = fmt.Errorf("stage %s page %d: %w", entity, page, err)
			break
		}
		stats.AddDuplicates(len(data.rows) - inserted)
		extractLog.Counters.Fetched += data.count

		checkpoint.TotalRecords = stats.Total
		checkpoint.ProcessedRecords = stats.Total
		checkpoint.SuccessfulRecords += inserted
		if err := e.store.UpsertCheckpoint(ctx, checkpoint); err != nil {
			loopErr = fmt.Errorf("update checkpoint: %w", err)
			break
		}

		logger.Debug("Page staged", "entity", entity, "page", page,
			"records", data.count, "inserted", inserted, "has_next", data.hasNext)

		if data.count == 0 || !data.hasNext {
			break
		}
		offset += data.count
		if maxPages > 0 && page >= maxPages {
			truncated = true
			break
		}
	}

	entityMeta["quality"] = stats.Metadata(entity == models.EntityChats)
	if truncated {
		extractLog.Metadata["truncated"] = true
		logger.Warn("Extract truncated at page cap, remaining pages left for a later run",
			"entity", entity, "max_pages", maxPages)
	}

	switch {
	case loopErr == nil:
		checkpoint.Status = models.RunStatusCompleted
	case cancel.IsCancelled(loopErr):
		checkpoint.Status = models.RunStatusCancelled
	default:
		checkpoint.Status = models.RunStatusFailed
		checkpoint.FailedRecords = checkpoint.TotalRecords - checkpoint.SuccessfulRecords
	}

	cpCtx, cancelCp := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCp()
	if err := e.store.UpsertCheckpoint(cpCtx, checkpoint); err != nil {
		logger.Error("Failed to finalize checkpoint", "entity", entity, "error", err)
	}
	return loopErr
}

// pageData is one fetched page reduced to what the loop needs.
type pageData struct {
	rows    []models.RawRecord
	count   int
	hasNext bool
}

// fetchPage pulls one page through the call queue and converts it to staging
// rows. Records that failed normalization keep their original bytes and an
// empty upstream id; the transform marks them failed with full provenance.
func (e *Engine) fetchPage(ctx context.Context, syncID string, entity models.EntityType, window Window, opts Options, page, offset int, stats *Stats, samples *callSamples, fetchedAt time.Time) (pageData, error) {
	switch entity {
	case models.EntityContacts:
		q := b2chat.ContactsQuery{
			Offset:      offset,
			Limit:       opts.BatchSize,
			UpdatedFrom: window.From,
			UpdatedTo:   window.To,
		}
		var contactsPage *b2chat.ContactsPage
		err := e.queue.Do(ctx, "contacts.export", func(ctx context.Context) error {
			start := time.Now()
			var err error
			contactsPage, err = e.client.GetContacts(ctx, q)
			if err == nil {
				samples.record(time.Since(start))
			}
			return err
		})
		if err != nil {
			return pageData{}, fmt.Errorf("fetch contacts page %d: %w", page, err)
		}

		data := pageData{count: len(contactsPage.Records), hasNext: contactsPage.Pagination.HasNextPage}
		for i, rec := range contactsPage.Records {
			stats.ObserveContact(rec)
			data.rows = append(data.rows, models.RawRecord{
				SyncID:     syncID,
				UpstreamID: rec.UpstreamID(),
				Payload:    rec.Raw,
				APIPage:    page,
				APIOffset:  offset + i,
				FetchedAt:  fetchedAt,
			})
		}
		return data, nil

	case models.EntityChats:
		q := b2chat.ChatsQuery{
			Offset:        offset,
			Limit:         opts.BatchSize,
			DateRangeFrom: window.From,
			DateRangeTo:   window.To,
		}
		var chatsPage *b2chat.ChatsPage
		err := e.queue.Do(ctx, "chats.export", func(ctx context.Context) error {
			start := time.Now()
			var err error
			chatsPage, err = e.client.GetChats(ctx, q)
			if err == nil {
				samples.record(time.Since(start))
			}
			return err
		})
		if err != nil {
			return pageData{}, fmt.Errorf("fetch chats page %d: %w", page, err)
		}

		data := pageData{count: len(chatsPage.Records), hasNext: chatsPage.Pagination.HasNextPage}
		for i, rec := range chatsPage.Records {
			stats.ObserveChat(rec)
			data.rows = append(data.rows, models.RawRecord{
				SyncID:     syncID,
				UpstreamID: rec.UpstreamID(),
				Payload:    rec.Raw,
				APIPage:    page,
				APIOffset:  offset + i,
				FetchedAt:  fetchedAt,
			})
		}
		return data, nil

	default:
		return pageData{}, fmt.Errorf("unsupported entity type %q", entity)
	}
}

// resolveWindow computes the date bounds for one entity, falling back to the
// entity's sync watermark when the run carries no explicit window.
func (e *Engine) resolveWindow(ctx context.Context, entity models.EntityType, opts Options) (Window, error) {
	var lastSync *time.Time
	state, err := e.store.GetSyncState(ctx, entity)
	switch {
	case err == nil:
		lastSync = state.LastSyncTimestamp
	case errors.Is(err, store.ErrNotFound):
		// First run for this entity: window falls back to preset or full.
	default:
		return Window{}, fmt.Errorf("load sync state for %s: %w", entity, err)
	}
	return ResolveWindow(opts.TimeRangePreset, opts.StartDate, opts.EndDate, lastSync, time.Now().UTC()), nil
}

// advanceSyncState moves each covered entity's watermark to the run start,
// so updates that raced the run are re-fetched next time.
func (e *Engine) advanceSyncState(ctx context.Context, logger *slog.Logger, entity models.EntityType, startedAt time.Time) {
	for _, concrete := range []models.EntityType{models.EntityContacts, models.EntityChats} {
		if !entity.Includes(concrete) {
			continue
		}
		st := &models.SyncState{
			EntityType:        concrete,
			LastSyncTimestamp: &startedAt,
			SyncStatus:        models.RunStatusCompleted,
		}
		if err := e.store.UpsertSyncState(ctx, st); err != nil {
			logger.Error("Failed to advance sync state", "entity", concrete, "error", err)
		}
	}
}

// attachPerformance folds the run's per-call samples into its metadata.
func (e *Engine) attachPerformance(extractLog *models.ExtractLog, elapsed time.Duration, samples []time.Duration) {
	perf := map[string]any{
		"api_calls":   extractLog.APICallCount,
		"duration_ms": elapsed.Milliseconds(),
	}
	if len(samples) > 0 {
		var total, slowest time.Duration
		for _, s := range samples {
			total += s
			if s > slowest {
				slowest = s
			}
		}
		perf["avg_response_ms"] = float64(total.Milliseconds()) / float64(len(samples))
		perf["max_response_ms"] = slowest.Milliseconds()
	}
	extractLog.Metadata["performance"] = perf
}
