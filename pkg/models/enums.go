// Package models contains the domain entities shared by the extract and transform pipelines.
package models

// EntityType identifies which upstream collection a run operates on.
type EntityType string

const (
	// EntityContacts targets the contacts export endpoint
	EntityContacts EntityType = "contacts"
	// EntityChats targets the chats export endpoint
	EntityChats EntityType = "chats"
	// EntityAll targets both endpoints in one run
	EntityAll EntityType = "all"
)

// IsValid checks if the entity type is valid.
func (e EntityType) IsValid() bool {
	return e == EntityContacts || e == EntityChats || e == EntityAll
}

// Includes reports whether a run for this entity type covers the given
// concrete entity (EntityAll covers both).
func (e EntityType) Includes(other EntityType) bool {
	return e == EntityAll || e == other
}

// RunStatus is the lifecycle state of an extract or transform run.
type RunStatus string

const (
	// RunStatusRunning means the run is in progress
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted means the run finished normally
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed means the run aborted with an error
	RunStatusFailed RunStatus = "failed"
	// RunStatusCancelled means the run observed a cancellation request
	RunStatusCancelled RunStatus = "cancelled"
)

// IsValid checks if the run status is valid.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a terminal state.
func (s RunStatus) IsTerminal() bool {
	return s != RunStatusRunning && s.IsValid()
}

// ProcessingStatus tracks a staged raw record through the transform.
type ProcessingStatus string

const (
	// ProcessingPending means the record has not been transformed yet
	ProcessingPending ProcessingStatus = "pending"
	// ProcessingProcessed means the record was transformed successfully
	ProcessingProcessed ProcessingStatus = "processed"
	// ProcessingFailed means the record failed transformation terminally
	ProcessingFailed ProcessingStatus = "failed"
)

// IsValid checks if the processing status is valid.
func (s ProcessingStatus) IsValid() bool {
	return s == ProcessingPending || s == ProcessingProcessed || s == ProcessingFailed
}

// SyncSource records how a contact row was produced.
type SyncSource string

const (
	// SourceChatEmbedded marks a stub contact built from fields embedded in a chat
	SourceChatEmbedded SyncSource = "chat_embedded"
	// SourceContactsAPI marks a contact created from the contacts export endpoint
	SourceContactsAPI SyncSource = "contacts_api"
	// SourceUpgraded marks a former stub later merged with an authoritative record
	SourceUpgraded SyncSource = "upgraded"
)

// IsValid checks if the sync source is valid.
func (s SyncSource) IsValid() bool {
	return s == SourceChatEmbedded || s == SourceContactsAPI || s == SourceUpgraded
}

// IsAuthoritative reports whether the contact already carries data from the
// contacts endpoint. Chat-embedded observations must not overwrite
// authoritative fields.
func (s SyncSource) IsAuthoritative() bool {
	return s == SourceContactsAPI || s == SourceUpgraded
}

// Provider identifies the messaging channel a chat arrived on.
type Provider string

const (
	ProviderWhatsApp Provider = "whatsapp"
	ProviderFacebook Provider = "facebook"
	ProviderTelegram Provider = "telegram"
	ProviderLiveChat Provider = "livechat"
	ProviderBotAPI   Provider = "b2cbotapi"
)

// IsValid checks if the provider is one of the known channels.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderWhatsApp, ProviderFacebook, ProviderTelegram, ProviderLiveChat, ProviderBotAPI:
		return true
	default:
		return false
	}
}

// ChatStatus is the canonical conversation state, including survey
// (poll) sub-states.
type ChatStatus string

const (
	StatusBotChatting      ChatStatus = "BOT_CHATTING"
	StatusOpened           ChatStatus = "OPENED"
	StatusPickedUp         ChatStatus = "PICKED_UP"
	StatusRespondedByAgent ChatStatus = "RESPONDED_BY_AGENT"
	StatusClosed           ChatStatus = "CLOSED"
	StatusCompletingPoll   ChatStatus = "COMPLETING_POLL"
	StatusCompletedPoll    ChatStatus = "COMPLETED_POLL"
	StatusAbandonedPoll    ChatStatus = "ABANDONED_POLL"
)

// IsValid checks if the status is one of the canonical values.
func (s ChatStatus) IsValid() bool {
	switch s {
	case StatusBotChatting, StatusOpened, StatusPickedUp, StatusRespondedByAgent,
		StatusClosed, StatusCompletingPoll, StatusCompletedPoll, StatusAbandonedPoll:
		return true
	default:
		return false
	}
}

// Direction classifies who initiated a chat.
type Direction string

const (
	// DirectionIncoming marks a customer-initiated chat
	DirectionIncoming Direction = "incoming"
	// DirectionOutgoing marks an agent-initiated chat
	DirectionOutgoing Direction = "outgoing"
	// DirectionOutgoingBroadcast marks a campaign/broadcast-initiated chat
	DirectionOutgoingBroadcast Direction = "outgoing_broadcast"
)

// IsValid checks if the direction is valid.
func (d Direction) IsValid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing || d == DirectionOutgoingBroadcast
}

// TimeRangePreset names a relative extraction window.
type TimeRangePreset string

const (
	// TimeRange1d covers the last day
	TimeRange1d TimeRangePreset = "1d"
	// TimeRange7d covers the last week
	TimeRange7d TimeRangePreset = "7d"
	// TimeRange30d covers the last thirty days
	TimeRange30d TimeRangePreset = "30d"
	// TimeRange90d covers the last ninety days
	TimeRange90d TimeRangePreset = "90d"
	// TimeRangeCustom uses an explicit start and end date
	TimeRangeCustom TimeRangePreset = "custom"
	// TimeRangeFull disables date filters and pages until exhaustion
	TimeRangeFull TimeRangePreset = "full"
)

// IsValid checks if the preset is valid.
func (p TimeRangePreset) IsValid() bool {
	switch p {
	case TimeRange1d, TimeRange7d, TimeRange30d, TimeRange90d, TimeRangeCustom, TimeRangeFull:
		return true
	default:
		return false
	}
}

// Days returns the window length for relative presets and 0 for
// custom and full.
func (p TimeRangePreset) Days() int {
	switch p {
	case TimeRange1d:
		return 1
	case TimeRange7d:
		return 7
	case TimeRange30d:
		return 30
	case TimeRange90d:
		return 90
	default:
		return 0
	}
}

// MessageType classifies message content.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// IsValid checks if the message type is valid.
func (t MessageType) IsValid() bool {
	return t == MessageText || t == MessageImage || t == MessageFile
}
