// Package transform reconciles staged raw records into the normalized
// contact, chat and message tables. Every raw row is processed in its own
// transaction: nested entities are upserted first, change detection
// suppresses no-op writes, SLA metrics are recomputed whenever a chat
// changes, and the row's processing status is flipped atomically with the
// writes it produced. A record that cannot be processed is marked failed
// with its cause and never aborts the run.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/cancel"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/config"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/sla"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

// Options are the per-run knobs. Zero values fall back to the configured
// sync defaults.
type Options struct {
	// TransformID is the pre-allocated run id. Empty means generate one;
	// callers that must correlate the run before it starts (the job worker)
	// set it.
	TransformID string

	// ExtractSyncID restricts the run to one extract batch (legacy mode).
	// Empty selects every pending row from completed extracts, which is the
	// default.
	ExtractSyncID string

	// BatchSize is how many pending rows are selected per pass.
	BatchSize int

	// UserID is recorded on the transform log when the run was requested by
	// a person rather than the scheduler.
	UserID string
}

// Result summarizes a finished run for callers that do not want to re-read
// the TransformLog.
type Result struct {
	TransformID string
	Status      models.RunStatus
	Counters    models.RunCounters
}

// outcome classifies what processing one raw record did to the normalized
// tables. Failures are reported through errors, not outcomes.
type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeUpdated
)

// Engine runs transformations. It owns all writes to the normalized tables
// and the processing status of raw rows; it never talks to the upstream API.
type Engine struct {
	store    *store.Store
	registry *cancel.Registry
	calc     *sla.Calculator
	defaults *config.SyncConfig
}

// New creates a transform Engine.
func New(st *store.Store, registry *cancel.Registry, calc *sla.Calculator, defaults *config.SyncConfig) *Engine {
	if st == nil {
		panic("transform.New: store must not be nil")
	}
	if registry == nil {
		panic("transform.New: registry must not be nil")
	}
	if calc == nil {
		panic("transform.New: calculator must not be nil")
	}
	if defaults == nil {
		defaults = config.DefaultSyncConfig()
	}
	return &Engine{
		store:    st,
		registry: registry,
		calc:     calc,
		defaults: defaults,
	}
}

// Run transforms the pending raw rows for one entity type (or both, for
// EntityAll). The run is registered with the cancel registry under its
// transform id; cancellation is observed before every record and finalizes
// the log as cancelled rather than failed. Rows not yet reached stay pending,
// so re-running resumes where the run stopped.
func (e *Engine) Run(ctx context.Context, entity models.EntityType, opts Options) (*Result, error) {
	if !entity.IsValid() {
		return nil, fmt.Errorf("invalid entity type %q", entity)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = e.defaults.BatchSize
	}

	transformID := opts.TransformID
	if transformID == "" {
		transformID = uuid.New().String()
	}
	runCtx, finish := e.registry.Register(ctx, transformID)
	defer finish()

	logger := slog.With("transform_id", transformID, "entity_type", entity)

	transformLog := &models.TransformLog{
		TransformID: transformID,
		EntityType:  entity,
		Status:      models.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
		Metadata:    map[string]any{},
	}
	if opts.ExtractSyncID != "" {
		transformLog.ExtractSyncID = &opts.ExtractSyncID
	}
	if opts.UserID != "" {
		transformLog.UserID = &opts.UserID
	}
	if err := e.store.CreateTransformLog(ctx, transformLog); err != nil {
		return nil, fmt.Errorf("create transform log: %w", err)
	}
	logger.Info("Transform run started",
		"extract_sync_id", opts.ExtractSyncID, "batch_size", opts.BatchSize)

	runErr := e.runEntities(runCtx, logger, transformLog, entity, opts)

	switch {
	case runErr == nil:
		transformLog.Status = models.RunStatusCompleted
	case cancel.IsCancelled(runErr):
		transformLog.Status = models.RunStatusCancelled
	default:
		transformLog.Status = models.RunStatusFailed
		msg := runErr.Error()
		transformLog.ErrorMessage = &msg
	}
	now := time.Now().UTC()
	transformLog.CompletedAt = &now

	// Finalize with a background context: the run context may already be
	// cancelled, and a terminal log must be written regardless.
	finalCtx, cancelFinal := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelFinal()
	if err := e.store.UpdateTransformLog(finalCtx, transformLog); err != nil {
		logger.Error("Failed to finalize transform log", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("finalize transform log: %w", err)
		}
	}

	logger.Info("Transform run finished",
		"status", transformLog.Status,
		"records_processed", transformLog.Counters.Processed,
		"records_created", transformLog.Counters.Created,
		"records_updated", transformLog.Counters.Updated,
		"records_skipped", transformLog.Counters.Skipped,
		"records_failed", transformLog.Counters.Failed)

	return &Result{
		TransformID: transformID,
		Status:      transformLog.Status,
		Counters:    transformLog.Counters,
	}, runErr
}

// runEntities transforms every concrete entity the run covers. Contacts go
// first so authoritative records land before the chats that reference them.
func (e *Engine) runEntities(ctx context.Context, logger *slog.Logger, transformLog *models.TransformLog, entity models.EntityType, opts Options) error {
	for _, concrete := range []models.EntityType{models.EntityContacts, models.EntityChats} {
		if !entity.Includes(concrete) {
			continue
		}
		if err := e.transformEntity(ctx, logger, transformLog, concrete, opts); err != nil {
			return err
		}
	}
	return nil
}

// transformEntity drains the pending raw rows for one concrete entity type,
// in the order they were fetched.
func (e *Engine) transformEntity(ctx context.Context, logger *slog.Logger, transformLog *models.TransformLog, entity models.EntityType, opts Options) error {
	syncIDs, err := e.sourceSyncIDs(ctx, entity, opts)
	if err != nil {
		return err
	}

	entityMeta := map[string]any{"sources": len(syncIDs)}
	transformLog.Metadata[string(entity)] = entityMeta

	if len(syncIDs) == 0 {
		logger.Info("No completed extracts to transform", "entity", entity)
		return nil
	}

	logger.Info("Transforming entity", "entity", entity, "sources", len(syncIDs))

	checkpoint := &models.SyncCheckpoint{
		SyncID:     transformLog.TransformID,
		EntityType: entity,
		Status:     models.RunStatusRunning,
	}

	var counters models.RunCounters
	selected := 0
	var loopErr error

	for {
		if loopErr = cancel.Check(ctx, transformLog.TransformID); loopErr != nil {
			break
		}

		rows, err := e.store.SelectPendingRaw(ctx, entity, syncIDs, opts.BatchSize)
		if err != nil {
			loopErr = fmt.Errorf("select pending %s: %w", entity, err)
			break
		}
		if len(rows) == 0 {
			break
		}
		selected += len(rows)

		for _, raw := range rows {
			if loopErr = cancel.Check(ctx, transformLog.TransformID); loopErr != nil {
				break
			}
			recorded, err := e.processRecord(ctx, logger, entity, raw, transformLog.TransformID)
			counters.Add(recorded)
			if err != nil {
				loopErr = err
				break
			}
		}
		if loopErr != nil {
			break
		}

		checkpoint.TotalRecords = selected
		checkpoint.ProcessedRecords = counters.Processed
		checkpoint.SuccessfulRecords = counters.Processed - counters.Failed
		checkpoint.FailedRecords = counters.Failed
		if err := e.store.UpsertCheckpoint(ctx, checkpoint); err != nil {
			loopErr = fmt.Errorf("update checkpoint: %w", err)
			break
		}

		logger.Debug("Batch transformed", "entity", entity,
			"selected", selected, "processed", counters.Processed, "failed", counters.Failed)
	}

	entityMeta["counters"] = map[string]any{
		"selected":  selected,
		"processed": counters.Processed,
		"created":   counters.Created,
		"updated":   counters.Updated,
		"skipped":   counters.Skipped,
		"failed":    counters.Failed,
	}
	transformLog.Counters.Add(counters)

	checkpoint.TotalRecords = selected
	checkpoint.ProcessedRecords = counters.Processed
	checkpoint.SuccessfulRecords = counters.Processed - counters.Failed
	checkpoint.FailedRecords = counters.Failed
	switch {
	case loopErr == nil:
		checkpoint.Status = models.RunStatusCompleted
	case cancel.IsCancelled(loopErr):
		checkpoint.Status = models.RunStatusCancelled
	default:
		checkpoint.Status = models.RunStatusFailed
	}

	cpCtx, cancelCp := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCp()
	if err := e.store.UpsertCheckpoint(cpCtx, checkpoint); err != nil {
		logger.Error("Failed to finalize checkpoint", "entity", entity, "error", err)
	}
	return loopErr
}

// sourceSyncIDs resolves which extract batches feed this run: the explicit
// one in legacy mode, otherwise every completed extract covering the entity.
func (e *Engine) sourceSyncIDs(ctx context.Context, entity models.EntityType, opts Options) ([]string, error) {
	if opts.ExtractSyncID != "" {
		return []string{opts.ExtractSyncID}, nil
	}
	syncIDs, err := e.store.CompletedExtractSyncIDs(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("list completed extracts for %s: %w", entity, err)
	}
	return syncIDs, nil
}

// processRecord applies one raw row and folds the result into counters. A
// record error marks the row failed and the run continues; infrastructure
// errors (marking the row, cancellation) propagate and end the run.
func (e *Engine) processRecord(ctx context.Context, logger *slog.Logger, entity models.EntityType, raw models.RawRecord, transformID string) (models.RunCounters, error) {
	var counters models.RunCounters

	out, err := e.applyRecord(ctx, logger, entity, raw, transformID)
	if err != nil {
		if cancel.IsCancelled(err) {
			// The row stays pending; a later run picks it up again.
			return counters, err
		}
		cause := err.Error()
		if markErr := e.store.MarkRawFailed(ctx, entity, raw.ID, cause); markErr != nil {
			return counters, fmt.Errorf("mark raw row %d failed: %w", raw.ID, markErr)
		}
		logger.Warn("Raw record failed",
			"entity", entity, "raw_id", raw.ID, "upstream_id", raw.UpstreamID, "error", err)
		counters.Processed, counters.Failed = 1, 1
		return counters, nil
	}

	counters.Processed = 1
	switch out {
	case outcomeCreated:
		counters.Created = 1
	case outcomeUpdated:
		counters.Updated = 1
	default:
		counters.Skipped = 1
	}
	return counters, nil
}

// applyRecord runs one raw row inside a transaction, so the normalized
// writes and the processed mark commit or roll back together.
func (e *Engine) applyRecord(ctx context.Context, logger *slog.Logger, entity models.EntityType, raw models.RawRecord, transformID string) (outcome, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("begin record transaction: %w", err)
	}
	defer func(tx pgx.Tx) { _ = tx.Rollback(ctx) }(tx)
	st := e.store.WithTx(tx)

	var out outcome
	switch entity {
	case models.EntityContacts:
		out, err = e.applyContact(ctx, st, logger, raw)
	case models.EntityChats:
		out, err = e.applyChat(ctx, st, logger, raw, transformID)
	default:
		return outcomeSkipped, fmt.Errorf("unsupported entity type %q", entity)
	}
	if err != nil {
		return out, err
	}

	if err := st.MarkRawProcessed(ctx, entity, raw.ID); err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, fmt.Errorf("commit record %d: %w", raw.ID, err)
	}
	return out, nil
}

// computeSLA recomputes every metric for a chat from its current anchors and
// message history. Chats carry no priority label, so only provider overrides
// apply.
func (e *Engine) computeSLA(chat *models.Chat, ordered []b2chat.ChatMessage) models.SLAMetrics {
	return e.calc.Compute(chat.Provider, "", slaAnchors(chat), slaEvents(ordered))
}
