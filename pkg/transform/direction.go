package transform

import (
	"strings"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/b2chat"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

// broadcastMarkers are the tag substrings that mark a campaign-style chat.
var broadcastMarkers = []string{"broadcast", "campaign", "mass_message", "bulk"}

// detectDirection classifies who initiated a chat, from its first message
// and its tags. Runs once, on insert; afterwards only convertDirection may
// change the stored value.
func detectDirection(ordered []b2chat.ChatMessage, tags []string) models.Direction {
	if len(ordered) == 0 {
		return models.DirectionIncoming
	}
	first := ordered[0]
	if first.Incoming {
		return models.DirectionIncoming
	}
	if first.Broadcasted || hasBroadcastTag(tags) {
		return models.DirectionOutgoingBroadcast
	}
	return models.DirectionOutgoing
}

// convertDirection applies the only legal direction change: an outgoing or
// broadcast chat becomes incoming once any customer message exists.
func convertDirection(current models.Direction, ordered []b2chat.ChatMessage) models.Direction {
	if current == models.DirectionIncoming {
		return current
	}
	for _, m := range ordered {
		if m.Incoming {
			return models.DirectionIncoming
		}
	}
	return current
}

// hasBroadcastTag reports whether any tag contains a broadcast marker,
// case-insensitively.
func hasBroadcastTag(tags []string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, marker := range broadcastMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}
