package models

import "time"

// ContactTag is one tag assignment on a contact. AssignedAt is kept as the
// upstream sent it (epoch number or date string); tag names are free-form.
type ContactTag struct {
	Name       string `json:"name"`
	AssignedAt any    `json:"assigned_at,omitempty"`
}

// Contact is a normalized contact row. A contact can originate either from
// the contacts export endpoint or as a stub reconstructed from fields
// embedded in a chat; SyncSource records which.
type Contact struct {
	ID                int64          `json:"id"`
	UpstreamID        string         `json:"upstream_id"`
	FullName          string         `json:"full_name"`
	Mobile            *string        `json:"mobile,omitempty"`
	Landline          *string        `json:"landline,omitempty"`
	Email             *string        `json:"email,omitempty"`
	Identification    *string        `json:"identification,omitempty"`
	Address           *string        `json:"address,omitempty"`
	City              *string        `json:"city,omitempty"`
	Country           *string        `json:"country,omitempty"`
	Company           *string        `json:"company,omitempty"`
	CustomAttributes  map[string]any `json:"custom_attributes,omitempty"`
	Tags              []ContactTag   `json:"tags,omitempty"`
	MerchantID        *string        `json:"merchant_id,omitempty"`
	UpstreamCreatedAt *time.Time     `json:"upstream_created_at,omitempty"`
	UpstreamUpdatedAt *time.Time     `json:"upstream_updated_at,omitempty"`
	SyncSource        SyncSource     `json:"sync_source"`
	NeedsFullSync     bool           `json:"needs_full_sync"`
	LastSyncAt        time.Time      `json:"last_sync_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsStub reports whether the contact still carries only chat-embedded data.
func (c *Contact) IsStub() bool {
	return c.SyncSource == SourceChatEmbedded
}
