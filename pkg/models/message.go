package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// messageIDBytes is the truncated hash length: 16 bytes keeps 128 bits of
// the digest, wide enough that collisions within a chat are not a concern.
const messageIDBytes = 16

// MessageID derives the stable identifier for a message from its chat, its
// timestamp and its position in the upstream sequence. The same inputs always
// produce the same id, which is what makes message ingestion exactly-once.
// The timestamp contributes as epoch milliseconds so the id does not depend
// on the zone or formatting the upstream happened to use.
func MessageID(chatUpstreamID string, timestamp time.Time, index int) string {
	seed := fmt.Sprintf("%s_%d_%d", chatUpstreamID, timestamp.UnixMilli(), index)
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:messageIDBytes])
}
