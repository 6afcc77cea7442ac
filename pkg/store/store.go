// Package store implements the persistence layer over PostgreSQL: raw
// staging tables, normalized entities, run logs, and sync bookkeeping.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// DB is the subset of pgxpool.Pool the store uses. pgx.Tx satisfies it as
// well, so every store method can run either on the pool or inside a
// transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store provides typed access to all tables. Methods are grouped by table
// across the files of this package.
type Store struct {
	db DB
}

// New creates a store on top of db.
func New(db DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("store: db is nil")
	}
	return &Store{db: db}, nil
}

// WithTx returns a store bound to tx. The caller owns the transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{db: tx}
}

// Begin opens a transaction on the underlying connection.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.db.Begin(ctx)
}

// rawTable maps an entity type to its staging table. Only the two concrete
// entity types have staging tables; "all" must be resolved by the caller.
func rawTable(entity models.EntityType) (string, error) {
	switch entity {
	case models.EntityContacts:
		return "raw_contacts", nil
	case models.EntityChats:
		return "raw_chats", nil
	default:
		return "", fmt.Errorf("store: no raw table for entity type %q", entity)
	}
}
