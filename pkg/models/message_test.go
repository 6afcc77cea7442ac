package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageIDStable(t *testing.T) {
	ts := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	first := MessageID("chat-42", ts, 0)
	second := MessageID("chat-42", ts, 0)
	assert.Equal(t, first, second, "same inputs must derive the same id")
	assert.Len(t, first, 32, "id is a 128-bit hex string")
}

func TestMessageIDIgnoresTimezoneRepresentation(t *testing.T) {
	utc := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	bogota := utc.In(time.FixedZone("America/Bogota", -5*3600))

	assert.Equal(t, MessageID("c", utc, 3), MessageID("c", bogota, 3))
}

func TestMessageIDDistinguishesInputs(t *testing.T) {
	ts := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	base := MessageID("c", ts, 0)
	assert.NotEqual(t, base, MessageID("c", ts, 1), "index must contribute")
	assert.NotEqual(t, base, MessageID("c", ts.Add(time.Millisecond), 0), "timestamp must contribute")
	assert.NotEqual(t, base, MessageID("d", ts, 0), "chat must contribute")
}

func TestMessageIDNoCollisionsHighVolumeChat(t *testing.T) {
	// A year-long chat with a message every second on a few parallel
	// indexes. Short encodings collide at this volume; the hash must not.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := make(map[string]string, 200000)

	for i := 0; i < 50000; i++ {
		ts := start.Add(time.Duration(i) * time.Second)
		for idx := 0; idx < 4; idx++ {
			id := MessageID("high-volume-chat", ts, idx)
			key := fmt.Sprintf("%d/%d", i, idx)
			prev, dup := seen[id]
			require.False(t, dup, "id collision between %s and %s", prev, key)
			seen[id] = key
		}
	}
}
