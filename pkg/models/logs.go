package models

import "time"

// RunCounters are the per-run record counters carried on extract and
// transform logs. Extract runs fill Fetched; transform runs fill the rest.
type RunCounters struct {
	Fetched   int `json:"records_fetched"`
	Processed int `json:"records_processed"`
	Created   int `json:"records_created"`
	Updated   int `json:"records_updated"`
	Skipped   int `json:"records_skipped"`
	Failed    int `json:"records_failed"`
}

// Add accumulates other into c.
func (c *RunCounters) Add(other RunCounters) {
	c.Fetched += other.Fetched
	c.Processed += other.Processed
	c.Created += other.Created
	c.Updated += other.Updated
	c.Skipped += other.Skipped
	c.Failed += other.Failed
}

// ExtractLog records one extract run. SyncID ties the log to the raw rows
// the run staged.
type ExtractLog struct {
	ID           int64          `json:"id"`
	SyncID       string         `json:"sync_id"`
	EntityType   EntityType     `json:"entity_type"`
	Status       RunStatus      `json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Counters     RunCounters    `json:"counters"`
	APICallCount int            `json:"api_call_count"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// TransformLog records one transform run. ExtractSyncID is set only in
// legacy single-batch mode; the default mode consumes every pending row
// from completed extracts.
type TransformLog struct {
	ID            int64          `json:"id"`
	TransformID   string         `json:"transform_id"`
	ExtractSyncID *string        `json:"extract_sync_id,omitempty"`
	EntityType    EntityType     `json:"entity_type"`
	Status        RunStatus      `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Counters      RunCounters    `json:"counters"`
	ErrorMessage  *string        `json:"error_message,omitempty"`
	UserID        *string        `json:"user_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}
