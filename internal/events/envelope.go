package events

import (
	"encoding/json"
	"time"

	"chatsphere/internal/domain"
)

// Envelope frames every event on the remote channel and on the local update
// stream.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// TypingPayload accompanies WireTyping and WireTypingStop.
type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// PresencePayload is a full roster snapshot. The upstream broadcasts the
// whole online set on every change, so consumers replace rather than merge.
type PresencePayload struct {
	OnlineUserIDs []string `json:"online_user_ids"`
}

// DeletePayload accompanies WireDelete.
type DeletePayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// NewEnvelope marshals payload into a framed event.
func NewEnvelope(eventType string, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: eventType, OccurredAt: time.Now().UTC(), Payload: raw}, nil
}

// DecodeMessage unwraps a WireMessage payload.
func (e Envelope) DecodeMessage() (domain.Message, error) {
	var msg domain.Message
	err := json.Unmarshal(e.Payload, &msg)
	return msg, err
}

// DecodeTyping unwraps a WireTyping or WireTypingStop payload.
func (e Envelope) DecodeTyping() (TypingPayload, error) {
	var p TypingPayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// DecodePresence unwraps a WirePresence payload.
func (e Envelope) DecodePresence() (PresencePayload, error) {
	var p PresencePayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// DecodeDelete unwraps a WireDelete payload.
func (e Envelope) DecodeDelete() (DeletePayload, error) {
	var p DeletePayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}
