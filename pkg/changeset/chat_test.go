package changeset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

func sampleChat() models.Chat {
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	opened := created.Add(time.Minute)
	agentID := int64(7)
	return models.Chat{
		UpstreamID:        "chat-42",
		AgentID:           &agentID,
		Provider:          models.ProviderWhatsApp,
		Status:            models.StatusPickedUp,
		Tags:              []string{"billing"},
		Direction:         models.DirectionIncoming,
		OriginalDirection: models.DirectionIncoming,
		CreatedAt:         created,
		OpenedAt:          &opened,
	}
}

func TestCompareChatsIdenticalIsClean(t *testing.T) {
	a := sampleChat()
	b := sampleChat()

	diff := CompareChats(&a, &b)
	assert.False(t, diff.HasChanges)
	assert.False(t, diff.StatusChanged)
}

func TestCompareChatsStatusTransition(t *testing.T) {
	a := sampleChat()
	b := sampleChat()
	b.Status = models.StatusClosed
	closed := a.CreatedAt.Add(2 * time.Hour)
	b.ClosedAt = &closed

	diff := CompareChats(&a, &b)
	require.True(t, diff.HasChanges)
	assert.ElementsMatch(t, []string{"status", "closed_at"}, diff.ChangedFields)
	require.True(t, diff.StatusChanged)
	assert.Equal(t, models.StatusPickedUp, diff.PreviousStatus)
	assert.Equal(t, models.StatusClosed, diff.NewStatus)
}

func TestCompareChatsTagOrderMatters(t *testing.T) {
	a := sampleChat()
	a.Tags = []string{"billing", "urgent"}
	b := sampleChat()
	b.Tags = []string{"urgent", "billing"}

	diff := CompareChats(&a, &b)
	assert.True(t, diff.HasChanges, "tags are an ordered list upstream")
}

func TestCompareChatsNilTagsEqualEmpty(t *testing.T) {
	a := sampleChat()
	a.Tags = nil
	b := sampleChat()
	b.Tags = []string{}

	diff := CompareChats(&a, &b)
	assert.False(t, diff.HasChanges)
}

func TestCompareChatsIgnoresDerivedFields(t *testing.T) {
	pickup := int64(90)
	ok := true
	a := sampleChat()
	b := sampleChat()
	b.OriginalDirection = models.DirectionOutgoing
	b.SLA = models.SLAMetrics{TimeToPickup: &pickup, PickupSLA: &ok}
	b.LastSyncAt = time.Now()

	diff := CompareChats(&a, &b)
	assert.False(t, diff.HasChanges, "originalDirection is immutable and metrics are recomputed")
}

func TestCompareChatsDirectionConversion(t *testing.T) {
	a := sampleChat()
	a.Direction = models.DirectionOutgoing
	a.OriginalDirection = models.DirectionOutgoing
	b := sampleChat()
	b.Direction = models.DirectionIncoming
	b.OriginalDirection = models.DirectionOutgoing

	diff := CompareChats(&a, &b)
	require.True(t, diff.HasChanges)
	assert.Equal(t, []string{"direction"}, diff.ChangedFields)
	assert.Equal(t, string(models.DirectionOutgoing), diff.OldValues["direction"])
	assert.Equal(t, string(models.DirectionIncoming), diff.NewValues["direction"])
}

func TestCompareChatsPollResponseByValue(t *testing.T) {
	a := sampleChat()
	a.PollResponse = map[string]any{"score": float64(5), "comment": "great"}
	b := sampleChat()
	b.PollResponse = map[string]any{"comment": "great", "score": float64(5)}

	diff := CompareChats(&a, &b)
	assert.False(t, diff.HasChanges, "key order is not a change")

	b.PollResponse = map[string]any{"comment": "great", "score": float64(2)}
	diff = CompareChats(&a, &b)
	assert.True(t, diff.HasChanges)
}
