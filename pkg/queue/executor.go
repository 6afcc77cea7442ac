package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/cancel"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/extract"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/transform"
)

// Executor runs claimed jobs through the extract and transform engines. Run
// ids are allocated and recorded on the job row before an engine starts, so
// operators can correlate a job with its run logs even when it dies mid-run.
type Executor struct {
	store     *store.Store
	extract   *extract.Engine
	transform *transform.Engine
}

// NewExecutor creates a job executor.
func NewExecutor(st *store.Store, ext *extract.Engine, tr *transform.Engine) *Executor {
	if st == nil {
		panic("queue.NewExecutor: store must not be nil")
	}
	if ext == nil {
		panic("queue.NewExecutor: extract engine must not be nil")
	}
	if tr == nil {
		panic("queue.NewExecutor: transform engine must not be nil")
	}
	return &Executor{store: st, extract: ext, transform: tr}
}

// Execute runs one job to completion and classifies the outcome. The
// terminal job status write stays with the worker.
func (e *Executor) Execute(ctx context.Context, job *models.SyncJob) *ExecutionResult {
	switch job.JobType {
	case models.JobTypeExtract:
		return e.runExtract(ctx, job)
	case models.JobTypeTransform:
		return e.runTransform(ctx, job)
	case models.JobTypePipeline:
		return e.runPipeline(ctx, job)
	default:
		return &ExecutionResult{
			Status: models.JobStatusFailed,
			Error:  fmt.Errorf("unknown job type %q", job.JobType),
		}
	}
}

func (e *Executor) runExtract(ctx context.Context, job *models.SyncJob) *ExecutionResult {
	syncID := uuid.New().String()
	if err := e.store.SetJobRunIDs(ctx, job.ID, &syncID, nil); err != nil {
		return &ExecutionResult{Status: models.JobStatusFailed, Error: err}
	}

	opts, err := extractOptions(job.Options, syncID)
	if err != nil {
		return &ExecutionResult{Status: models.JobStatusFailed, Error: err}
	}
	_, err = e.extract.Run(ctx, job.EntityType, opts)
	return classify(ctx, err)
}

func (e *Executor) runTransform(ctx context.Context, job *models.SyncJob) *ExecutionResult {
	transformID := uuid.New().String()
	if err := e.store.SetJobRunIDs(ctx, job.ID, nil, &transformID); err != nil {
		return &ExecutionResult{Status: models.JobStatusFailed, Error: err}
	}

	_, err := e.transform.Run(ctx, job.EntityType, transformOptions(job.Options, transformID))
	return classify(ctx, err)
}

// runPipeline extracts and then transforms. The transform is deliberately
// not scoped to the batch it just staged: draining every pending row from
// completed extracts also sweeps up leftovers of earlier interrupted runs.
func (e *Executor) runPipeline(ctx context.Context, job *models.SyncJob) *ExecutionResult {
	syncID := uuid.New().String()
	transformID := uuid.New().String()
	if err := e.store.SetJobRunIDs(ctx, job.ID, &syncID, &transformID); err != nil {
		return &ExecutionResult{Status: models.JobStatusFailed, Error: err}
	}

	opts, err := extractOptions(job.Options, syncID)
	if err != nil {
		return &ExecutionResult{Status: models.JobStatusFailed, Error: err}
	}
	if _, err := e.extract.Run(ctx, job.EntityType, opts); err != nil {
		return classify(ctx, err)
	}

	_, err = e.transform.Run(ctx, job.EntityType, transformOptions(job.Options, transformID))
	return classify(ctx, err)
}

// classify maps an engine error onto the job's terminal status. The engines
// report deadline expiry and cooperative cancellation the same way; the job
// context tells them apart.
func classify(ctx context.Context, err error) *ExecutionResult {
	switch {
	case err == nil:
		return &ExecutionResult{Status: models.JobStatusCompleted}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ExecutionResult{Status: models.JobStatusTimedOut, Error: err}
	case cancel.IsCancelled(err):
		return &ExecutionResult{Status: models.JobStatusCancelled, Error: err}
	default:
		return &ExecutionResult{Status: models.JobStatusFailed, Error: err}
	}
}

// extractOptions maps the serialized job options onto extract run options.
func extractOptions(o models.JobOptions, syncID string) (extract.Options, error) {
	opts := extract.Options{
		SyncID:    syncID,
		BatchSize: o.BatchSize,
		FullSync:  o.FullSync,
		MaxPages:  o.MaxPages,
	}
	if o.TimeRangePreset != "" {
		preset := models.TimeRangePreset(o.TimeRangePreset)
		if !preset.IsValid() {
			return extract.Options{}, fmt.Errorf("invalid time range preset %q", o.TimeRangePreset)
		}
		opts.TimeRangePreset = preset
	}

	start, err := parseDateOption("start_date", o.StartDate)
	if err != nil {
		return extract.Options{}, err
	}
	end, err := parseDateOption("end_date", o.EndDate)
	if err != nil {
		return extract.Options{}, err
	}
	opts.StartDate = start
	opts.EndDate = end
	return opts, nil
}

func parseDateOption(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return &t, nil
}

// transformOptions maps the serialized job options onto transform run
// options. A job carrying an explicit extract sync id scopes the run to
// that batch; otherwise the run drains everything pending.
func transformOptions(o models.JobOptions, transformID string) transform.Options {
	opts := transform.Options{
		TransformID: transformID,
		BatchSize:   o.BatchSize,
		UserID:      o.UserID,
	}
	if o.ExtractSyncID != nil {
		opts.ExtractSyncID = *o.ExtractSyncID
	}
	return opts
}
