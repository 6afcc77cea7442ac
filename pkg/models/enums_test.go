package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityTypeIncludes(t *testing.T) {
	tests := []struct {
		name   string
		entity EntityType
		other  EntityType
		want   bool
	}{
		{name: "all includes contacts", entity: EntityAll, other: EntityContacts, want: true},
		{name: "all includes chats", entity: EntityAll, other: EntityChats, want: true},
		{name: "contacts includes itself", entity: EntityContacts, other: EntityContacts, want: true},
		{name: "contacts excludes chats", entity: EntityContacts, other: EntityChats, want: false},
		{name: "chats excludes contacts", entity: EntityChats, other: EntityContacts, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entity.Includes(tt.other))
		})
	}
}

func TestRunStatusIsTerminal(t *testing.T) {
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.True(t, RunStatusCompleted.IsTerminal())
	assert.True(t, RunStatusFailed.IsTerminal())
	assert.True(t, RunStatusCancelled.IsTerminal())
	assert.False(t, RunStatus("bogus").IsTerminal())
}

func TestSyncSourceIsAuthoritative(t *testing.T) {
	assert.False(t, SourceChatEmbedded.IsAuthoritative())
	assert.True(t, SourceContactsAPI.IsAuthoritative())
	assert.True(t, SourceUpgraded.IsAuthoritative())
}

func TestJobStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusPending, false},
		{JobStatusInProgress, false},
		{JobStatusCancelling, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
		{JobStatusCancelled, true},
		{JobStatusTimedOut, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
			assert.True(t, tt.status.IsValid())
		})
	}
}

func TestProviderIsValid(t *testing.T) {
	for _, p := range []Provider{ProviderWhatsApp, ProviderFacebook, ProviderTelegram, ProviderLiveChat, ProviderBotAPI} {
		assert.True(t, p.IsValid(), "provider %q", p)
	}
	assert.False(t, Provider("smoke_signals").IsValid())
}

func TestChatStatusIsValid(t *testing.T) {
	for _, s := range []ChatStatus{
		StatusBotChatting, StatusOpened, StatusPickedUp, StatusRespondedByAgent,
		StatusClosed, StatusCompletingPoll, StatusCompletedPoll, StatusAbandonedPoll,
	} {
		assert.True(t, s.IsValid(), "status %q", s)
	}
	assert.False(t, ChatStatus("OPEN").IsValid(), "legacy alias is not canonical")
}
