package events

// Wire event types delivered by the remote event channel.
// These follow the format used by the upstream service.
const (
	WireMessage    = "message"
	WireTyping     = "typing"
	WireTypingStop = "typing_stop"
	WirePresence   = "presence"
	WireDelete     = "delete"
)

// Update types published to the presentation layer. Anything that changes a
// previously communicated optimistic state must appear here, never only in
// the logs.
const (
	UpdateMessageCreated  = "message.created"
	UpdateMessageUpdated  = "message.updated"
	UpdateMessageFailed   = "message.failed"
	UpdateMessageDeleted  = "message.deleted"
	UpdateMessageRestored = "message.restored"
	UpdateHistoryLoaded   = "history.loaded"
	UpdateHistoryFailed   = "history.failed"
	UpdateTypingChanged   = "typing.changed"
	UpdatePresenceChanged = "presence.changed"
	UpdateUnseenChanged   = "unseen.changed"
)
