package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// InsertMessages appends messages, silently skipping ids that already exist.
// Message ids are content-derived, so a re-ingested chat inserts nothing new.
// Returns the number of rows actually inserted.
func (s *Store) InsertMessages(ctx context.Context, msgs []models.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	const sql = `INSERT INTO messages (id, chat_id, text, type, incoming, sent_at, caption, image_url, file_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(sql, m.ID, m.ChatID, m.Text, m.Type, m.Incoming, m.Timestamp,
			m.Caption, m.ImageURL, m.FileURL)
	}

	results := s.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	inserted := 0
	for range msgs {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert message: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// MessagesForChat returns a chat's messages in send order.
func (s *Store) MessagesForChat(ctx context.Context, chatID int64) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, `SELECT id, chat_id, text, type, incoming, sent_at, caption, image_url, file_url, created_at
		FROM messages WHERE chat_id = $1 ORDER BY sent_at, id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Text, &m.Type, &m.Incoming, &m.Timestamp,
			&m.Caption, &m.ImageURL, &m.FileURL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
