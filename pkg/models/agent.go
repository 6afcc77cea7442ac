package models

import "time"

// Agent is a normalized agent row. Username is the stable identity when the
// upstream provides one; otherwise agents are matched by display name.
type Agent struct {
	ID         int64     `json:"id"`
	UpstreamID string    `json:"upstream_id"`
	Name       string    `json:"name"`
	Username   *string   `json:"username,omitempty"`
	Email      *string   `json:"email,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Department is a normalized department row keyed by the upstream code.
type Department struct {
	ID           int64     `json:"id"`
	UpstreamCode string    `json:"upstream_code"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	IsLeaf       bool      `json:"is_leaf"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
