package models

import "time"

// SyncState is the per-entity-type watermark used to pick the default date
// window for incremental extracts.
type SyncState struct {
	ID                int64      `json:"id"`
	EntityType        EntityType `json:"entity_type"`
	LastSyncTimestamp *time.Time `json:"last_sync_timestamp,omitempty"`
	LastSyncedID      *string    `json:"last_synced_id,omitempty"`
	LastSyncOffset    *int       `json:"last_sync_offset,omitempty"`
	SyncStatus        RunStatus  `json:"sync_status"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// SyncCheckpoint tracks coarse progress of one run so an operator can see
// how far a long sync has come without reading the raw tables.
type SyncCheckpoint struct {
	ID                int64      `json:"id"`
	SyncID            string     `json:"sync_id"`
	EntityType        EntityType `json:"entity_type"`
	TotalRecords      int        `json:"total_records"`
	ProcessedRecords  int        `json:"processed_records"`
	SuccessfulRecords int        `json:"successful_records"`
	FailedRecords     int        `json:"failed_records"`
	Status            RunStatus  `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
