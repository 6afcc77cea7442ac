package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

const contactColumns = `id, upstream_id, full_name, mobile, landline, email, identification,
	address, city, country, company, custom_attributes, tags, merchant_id,
	upstream_created_at, upstream_updated_at, sync_source, needs_full_sync,
	last_sync_at, created_at, updated_at`

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.UpstreamID, &c.FullName, &c.Mobile, &c.Landline, &c.Email,
		&c.Identification, &c.Address, &c.City, &c.Country, &c.Company,
		&c.CustomAttributes, &c.Tags, &c.MerchantID,
		&c.UpstreamCreatedAt, &c.UpstreamUpdatedAt, &c.SyncSource, &c.NeedsFullSync,
		&c.LastSyncAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	return &c, nil
}

// GetContactByUpstreamID looks a contact up by its upstream identifier.
func (s *Store) GetContactByUpstreamID(ctx context.Context, upstreamID string) (*models.Contact, error) {
	row := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM contacts WHERE upstream_id = $1`, contactColumns), upstreamID)
	return scanContact(row)
}

// InsertContact inserts a new contact and fills in its generated id.
func (s *Store) InsertContact(ctx context.Context, c *models.Contact) error {
	err := s.db.QueryRow(ctx, `INSERT INTO contacts (
			upstream_id, full_name, mobile, landline, email, identification,
			address, city, country, company, custom_attributes, tags, merchant_id,
			upstream_created_at, upstream_updated_at, sync_source, needs_full_sync, last_sync_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		c.UpstreamID, c.FullName, c.Mobile, c.Landline, c.Email, c.Identification,
		c.Address, c.City, c.Country, c.Company, c.CustomAttributes, c.Tags, c.MerchantID,
		c.UpstreamCreatedAt, c.UpstreamUpdatedAt, c.SyncSource, c.NeedsFullSync, c.LastSyncAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// UpdateContact rewrites all mutable fields of an existing contact.
func (s *Store) UpdateContact(ctx context.Context, c *models.Contact) error {
	tag, err := s.db.Exec(ctx, `UPDATE contacts SET
			full_name = $2, mobile = $3, landline = $4, email = $5, identification = $6,
			address = $7, city = $8, country = $9, company = $10,
			custom_attributes = $11, tags = $12, merchant_id = $13,
			upstream_created_at = $14, upstream_updated_at = $15,
			sync_source = $16, needs_full_sync = $17, last_sync_at = $18,
			updated_at = now()
		WHERE id = $1`,
		c.ID, c.FullName, c.Mobile, c.Landline, c.Email, c.Identification,
		c.Address, c.City, c.Country, c.Company, c.CustomAttributes, c.Tags, c.MerchantID,
		c.UpstreamCreatedAt, c.UpstreamUpdatedAt, c.SyncSource, c.NeedsFullSync, c.LastSyncAt)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
