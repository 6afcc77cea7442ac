package models

import "time"

// JobType selects what a queued sync job runs.
type JobType string

const (
	// JobTypeExtract runs the extract engine only
	JobTypeExtract JobType = "extract"
	// JobTypeTransform runs the transform engine only
	JobTypeTransform JobType = "transform"
	// JobTypePipeline runs extract and then transform for the same entity type
	JobTypePipeline JobType = "pipeline"
)

// IsValid checks if the job type is valid.
func (t JobType) IsValid() bool {
	return t == JobTypeExtract || t == JobTypeTransform || t == JobTypePipeline
}

// JobStatus is the lifecycle state of a queued sync job.
type JobStatus string

const (
	// JobStatusPending means the job is waiting to be claimed by a worker
	JobStatusPending JobStatus = "pending"
	// JobStatusInProgress means a worker is running the job
	JobStatusInProgress JobStatus = "in_progress"
	// JobStatusCancelling means cancellation was requested and the worker has not finished yet
	JobStatusCancelling JobStatus = "cancelling"
	// JobStatusCompleted means the job finished normally
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed means the job aborted with an error
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled means the job was cancelled before or during execution
	JobStatusCancelled JobStatus = "cancelled"
	// JobStatusTimedOut means the job exceeded its deadline or lost its worker
	JobStatusTimedOut JobStatus = "timed_out"
)

// IsValid checks if the job status is valid.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusInProgress, JobStatusCancelling,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusTimedOut:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the job can no longer change state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusTimedOut:
		return true
	default:
		return false
	}
}

// JobOptions is the serializable subset of run options carried on a queued
// job and handed to the engines when a worker picks it up.
type JobOptions struct {
	BatchSize       int     `json:"batch_size,omitempty"`
	FullSync        bool    `json:"full_sync,omitempty"`
	TimeRangePreset string  `json:"time_range_preset,omitempty"`
	StartDate       string  `json:"start_date,omitempty"`
	EndDate         string  `json:"end_date,omitempty"`
	MaxPages        int     `json:"max_pages,omitempty"`
	ExtractSyncID   *string `json:"extract_sync_id,omitempty"`
	UserID          string  `json:"user_id,omitempty"`
}

// SyncJob is one queued unit of pipeline work. Workers claim pending jobs,
// heartbeat while running, and record the run ids they started so operators
// can correlate jobs with extract/transform logs.
type SyncJob struct {
	ID              string     `json:"id"`
	JobType         JobType    `json:"job_type"`
	EntityType      EntityType `json:"entity_type"`
	Options         JobOptions `json:"options"`
	Status          JobStatus  `json:"status"`
	PodID           *string    `json:"pod_id,omitempty"`
	SyncID          *string    `json:"sync_id,omitempty"`
	TransformID     *string    `json:"transform_id,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	CancelRequested bool       `json:"cancel_requested"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	LastHeartbeat   *time.Time `json:"last_heartbeat,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
