package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// UpsertAgent inserts or refreshes an agent keyed by upstream_id and returns
// the row id. Username and email are never overwritten with null, since chat
// payloads carry them inconsistently.
func (s *Store) UpsertAgent(ctx context.Context, a *models.Agent) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `INSERT INTO agents (upstream_id, name, username, email, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (upstream_id) DO UPDATE SET
			name = EXCLUDED.name,
			username = COALESCE(EXCLUDED.username, agents.username),
			email = COALESCE(EXCLUDED.email, agents.email),
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id`,
		a.UpstreamID, a.Name, a.Username, a.Email, a.IsActive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert agent: %w", err)
	}
	a.ID = id
	return id, nil
}

// GetAgentByUpstreamID looks an agent up by its upstream identifier.
func (s *Store) GetAgentByUpstreamID(ctx context.Context, upstreamID string) (*models.Agent, error) {
	var a models.Agent
	err := s.db.QueryRow(ctx, `SELECT id, upstream_id, name, username, email, is_active, created_at, updated_at
		FROM agents WHERE upstream_id = $1`, upstreamID).
		Scan(&a.ID, &a.UpstreamID, &a.Name, &a.Username, &a.Email, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan agent: %w", err)
	}
	return &a, nil
}

// UpsertDepartment inserts or refreshes a department keyed by upstream_code
// and returns the row id.
func (s *Store) UpsertDepartment(ctx context.Context, d *models.Department) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `INSERT INTO departments (upstream_code, name, is_active, is_leaf)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (upstream_code) DO UPDATE SET
			name = EXCLUDED.name,
			is_active = EXCLUDED.is_active,
			is_leaf = EXCLUDED.is_leaf,
			updated_at = now()
		RETURNING id`,
		d.UpstreamCode, d.Name, d.IsActive, d.IsLeaf).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert department: %w", err)
	}
	d.ID = id
	return id, nil
}

// GetDepartmentByCode looks a department up by its upstream code.
func (s *Store) GetDepartmentByCode(ctx context.Context, code string) (*models.Department, error) {
	var d models.Department
	err := s.db.QueryRow(ctx, `SELECT id, upstream_code, name, is_active, is_leaf, created_at, updated_at
		FROM departments WHERE upstream_code = $1`, code).
		Scan(&d.ID, &d.UpstreamCode, &d.Name, &d.IsActive, &d.IsLeaf, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan department: %w", err)
	}
	return &d, nil
}
