package models

import "time"

// SLAMetrics holds the computed service-level values for one chat. Durations
// are seconds; every metric has a wall-clock and a business-hours variant.
// Nil means the metric is not computable for this chat (missing anchor or
// negative interval), and its compliance flag is nil as well.
type SLAMetrics struct {
	TimeToPickup                   *int64   `json:"time_to_pickup,omitempty"`
	TimeToPickupBusinessHours      *int64   `json:"time_to_pickup_business_hours,omitempty"`
	FirstResponseTime              *int64   `json:"first_response_time,omitempty"`
	FirstResponseTimeBusinessHours *int64   `json:"first_response_time_business_hours,omitempty"`
	AvgResponseTime                *float64 `json:"avg_response_time,omitempty"`
	AvgResponseTimeBusinessHours   *float64 `json:"avg_response_time_business_hours,omitempty"`
	ResolutionTime                 *int64   `json:"resolution_time,omitempty"`
	ResolutionTimeBusinessHours    *int64   `json:"resolution_time_business_hours,omitempty"`
	PickupSLA                      *bool    `json:"pickup_sla,omitempty"`
	FirstResponseSLA               *bool    `json:"first_response_sla,omitempty"`
	AvgResponseSLA                 *bool    `json:"avg_response_sla,omitempty"`
	ResolutionSLA                  *bool    `json:"resolution_sla,omitempty"`
	OverallSLA                     *bool    `json:"overall_sla,omitempty"`
}

// Chat is a normalized conversation row. CreatedAt and the *At anchors are
// upstream times; LastSyncAt and UpdatedAt are local bookkeeping.
type Chat struct {
	ID                int64      `json:"id"`
	UpstreamID        string     `json:"upstream_id"`
	AgentID           *int64     `json:"agent_id,omitempty"`
	ContactID         *int64     `json:"contact_id,omitempty"`
	DepartmentID      *int64     `json:"department_id,omitempty"`
	Provider          Provider   `json:"provider"`
	Status            ChatStatus `json:"status"`
	Alias             *string    `json:"alias,omitempty"`
	Tags              []string   `json:"tags,omitempty"`
	Direction         Direction  `json:"direction"`
	OriginalDirection Direction  `json:"original_direction"`
	CreatedAt         time.Time  `json:"created_at"`
	OpenedAt          *time.Time `json:"opened_at,omitempty"`
	PickedUpAt        *time.Time `json:"picked_up_at,omitempty"`
	ResponseAt        *time.Time `json:"response_at,omitempty"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
	DurationSeconds   *int64     `json:"duration_seconds,omitempty"`
	PollStartedAt     *time.Time `json:"poll_started_at,omitempty"`
	PollCompletedAt   *time.Time `json:"poll_completed_at,omitempty"`
	PollAbandonedAt   *time.Time `json:"poll_abandoned_at,omitempty"`
	PollResponse      any        `json:"poll_response,omitempty"`
	SLA               SLAMetrics `json:"sla"`
	LastSyncAt        time.Time  `json:"last_sync_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Message is one message within a chat. ID is derived from the chat, the
// message timestamp and its position, so re-ingesting the same chat never
// inserts a message twice.
type Message struct {
	ID        string      `json:"id"`
	ChatID    int64       `json:"chat_id"`
	Text      *string     `json:"text,omitempty"`
	Type      MessageType `json:"type"`
	Incoming  bool        `json:"incoming"`
	Timestamp time.Time   `json:"timestamp"`
	Caption   *string     `json:"caption,omitempty"`
	ImageURL  *string     `json:"image_url,omitempty"`
	FileURL   *string     `json:"file_url,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ChatStatusHistory is one append-only status transition observed on a chat.
type ChatStatusHistory struct {
	ID             int64      `json:"id"`
	ChatID         int64      `json:"chat_id"`
	PreviousStatus ChatStatus `json:"previous_status"`
	NewStatus      ChatStatus `json:"new_status"`
	ChangedAt      time.Time  `json:"changed_at"`
	SyncID         *string    `json:"sync_id,omitempty"`
	TransformID    *string    `json:"transform_id,omitempty"`
}
