package transform

import (
	"sort"
	"strings"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// chronological returns a copy of the chat's messages ordered by timestamp.
// The sort is stable, so messages sharing a timestamp keep their upstream
// order; messages without a timestamp sort first.
func chronological(msgs []b2chat.ChatMessage) []b2chat.ChatMessage {
	ordered := make([]b2chat.ChatMessage, len(msgs))
	copy(ordered, msgs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Time.Before(ordered[j].Timestamp.Time)
	})
	return ordered
}

// buildMessages converts raw chat messages to rows. Ids derive from the chat,
// each message's timestamp and its upstream position, so the same payload
// always produces the same ids and re-ingestion inserts nothing.
func buildMessages(chatUpstreamID string, chatID int64, msgs []b2chat.ChatMessage) []models.Message {
	if len(msgs) == 0 {
		return nil
	}
	rows := make([]models.Message, 0, len(msgs))
	for i, m := range msgs {
		rows = append(rows, models.Message{
			ID:        models.MessageID(chatUpstreamID, m.Timestamp.Time, i),
			ChatID:    chatID,
			Text:      strPtr(m.Text),
			Type:      messageType(m),
			Incoming:  m.Incoming,
			Timestamp: m.Timestamp.Time,
			Caption:   strPtr(m.Caption),
			ImageURL:  strPtr(m.ImageURL),
			FileURL:   strPtr(m.FileURL),
		})
	}
	return rows
}

// messageType maps the upstream type string, inferring from attachments when
// it is absent or unknown.
func messageType(m b2chat.ChatMessage) models.MessageType {
	if t := models.MessageType(strings.ToLower(strings.TrimSpace(m.Type))); t.IsValid() {
		return t
	}
	switch {
	case m.ImageURL != "":
		return models.MessageImage
	case m.FileURL != "":
		return models.MessageFile
	default:
		return models.MessageText
	}
}
