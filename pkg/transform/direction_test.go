package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

func msgAt(incoming bool, at time.Time) b2chat.ChatMessage {
	return b2chat.ChatMessage{Incoming: incoming, Timestamp: b2chat.FlexTime{Time: at}}
}

func TestDetectDirection(t *testing.T) {
	base := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		messages []b2chat.ChatMessage
		tags     []string
		want     models.Direction
	}{
		{
			name: "no messages means customer initiated",
			want: models.DirectionIncoming,
		},
		{
			name:     "first message from customer",
			messages: []b2chat.ChatMessage{msgAt(true, base), msgAt(false, base.Add(time.Minute))},
			want:     models.DirectionIncoming,
		},
		{
			name:     "first message from agent",
			messages: []b2chat.ChatMessage{msgAt(false, base), msgAt(true, base.Add(time.Minute))},
			want:     models.DirectionOutgoing,
		},
		{
			name: "broadcasted first message",
			messages: []b2chat.ChatMessage{
				{Incoming: false, Broadcasted: true, Timestamp: b2chat.FlexTime{Time: base}},
			},
			want: models.DirectionOutgoingBroadcast,
		},
		{
			name:     "campaign tag matches as substring ignoring case",
			messages: []b2chat.ChatMessage{msgAt(false, base)},
			tags:     []string{"vip", "Primavera CAMPAIGN 2025"},
			want:     models.DirectionOutgoingBroadcast,
		},
		{
			name:     "bulk tag",
			messages: []b2chat.ChatMessage{msgAt(false, base)},
			tags:     []string{"bulk-send"},
			want:     models.DirectionOutgoingBroadcast,
		},
		{
			name:     "unrelated tags stay outgoing",
			messages: []b2chat.ChatMessage{msgAt(false, base)},
			tags:     []string{"vip", "billing"},
			want:     models.DirectionOutgoing,
		},
		{
			name:     "customer first wins over broadcast tag",
			messages: []b2chat.ChatMessage{msgAt(true, base)},
			tags:     []string{"broadcast"},
			want:     models.DirectionIncoming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDirection(tt.messages, tt.tags))
		})
	}
}

func TestConvertDirection(t *testing.T) {
	base := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	agentOnly := []b2chat.ChatMessage{msgAt(false, base)}
	withCustomer := []b2chat.ChatMessage{msgAt(false, base), msgAt(true, base.Add(time.Hour))}

	assert.Equal(t, models.DirectionIncoming, convertDirection(models.DirectionIncoming, nil),
		"incoming never converts")
	assert.Equal(t, models.DirectionOutgoing, convertDirection(models.DirectionOutgoing, agentOnly),
		"no customer message keeps outgoing")
	assert.Equal(t, models.DirectionIncoming, convertDirection(models.DirectionOutgoing, withCustomer),
		"customer reply converts outgoing")
	assert.Equal(t, models.DirectionIncoming, convertDirection(models.DirectionOutgoingBroadcast, withCustomer),
		"customer reply converts broadcast")
}
