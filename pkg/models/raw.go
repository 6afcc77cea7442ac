package models

import "time"

// RawRecord is one staged upstream record. Rows are written once by the
// extract engine and only their processing fields are mutated afterwards,
// by the transform engine. The same shape backs both raw_contacts and
// raw_chats.
type RawRecord struct {
	ID                int64            `json:"id"`
	SyncID            string           `json:"sync_id"`
	UpstreamID        string           `json:"upstream_id"`
	Payload           []byte           `json:"payload"`
	APIPage           int              `json:"api_page"`
	APIOffset         int              `json:"api_offset"`
	FetchedAt         time.Time        `json:"fetched_at"`
	ProcessingStatus  ProcessingStatus `json:"processing_status"`
	ProcessingAttempt int              `json:"processing_attempt"`
	ProcessingError   *string          `json:"processing_error,omitempty"`
	ProcessedAt       *time.Time       `json:"processed_at,omitempty"`
}
