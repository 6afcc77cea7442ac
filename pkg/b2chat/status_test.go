package b2chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      models.ChatStatus
		wantKnown bool
	}{
		{name: "canonical value passes through", raw: "PICKED_UP", want: models.StatusPickedUp, wantKnown: true},
		{name: "lower case", raw: "closed", want: models.StatusClosed, wantKnown: true},
		{name: "mixed case with spaces", raw: "Responded By Agent", want: models.StatusRespondedByAgent, wantKnown: true},
		{name: "surrounding whitespace", raw: "  opened  ", want: models.StatusOpened, wantKnown: true},
		{name: "underscores already in place", raw: "bot_chatting", want: models.StatusBotChatting, wantKnown: true},
		{name: "poll state with spaces", raw: "completed poll", want: models.StatusCompletedPoll, wantKnown: true},
		{name: "legacy OPEN alias", raw: "OPEN", want: models.StatusPickedUp, wantKnown: true},
		{name: "legacy PENDING alias", raw: "pending", want: models.StatusOpened, wantKnown: true},
		{name: "legacy FINISHED alias", raw: "Finished", want: models.StatusClosed, wantKnown: true},
		{name: "unknown falls back to OPENED", raw: "EXPLODED", want: models.StatusOpened, wantKnown: false},
		{name: "empty falls back to OPENED", raw: "", want: models.StatusOpened, wantKnown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := NormalizeStatus(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestNormalizeStatusIsProjection(t *testing.T) {
	// Normalizing an already normalized value must be a no-op.
	for _, status := range []models.ChatStatus{
		models.StatusBotChatting, models.StatusOpened, models.StatusPickedUp,
		models.StatusRespondedByAgent, models.StatusClosed,
		models.StatusCompletingPoll, models.StatusCompletedPoll, models.StatusAbandonedPoll,
	} {
		once, known := NormalizeStatus(string(status))
		assert.True(t, known, "canonical %q must be known", status)
		twice, _ := NormalizeStatus(string(once))
		assert.Equal(t, once, twice)
		assert.Equal(t, status, once)
	}
}

func TestNormalizeProvider(t *testing.T) {
	assert.Equal(t, models.ProviderWhatsApp, NormalizeProvider("WhatsApp"))
	assert.Equal(t, models.ProviderFacebook, NormalizeProvider("facebook"))
	assert.Equal(t, models.ProviderTelegram, NormalizeProvider(" telegram "))
	assert.Equal(t, models.ProviderBotAPI, NormalizeProvider("B2CBOTAPI"))
	assert.Equal(t, models.ProviderLiveChat, NormalizeProvider("carrier-pigeon"))
	assert.Equal(t, models.ProviderLiveChat, NormalizeProvider(""))
}
