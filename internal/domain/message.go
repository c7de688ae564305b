package domain

import (
	"strings"
	"time"

	chat_errors "chatsphere/pkg/errors"
)

// DeliveryStatus is the lifecycle of a message inside the local store.
type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "pending"
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
	StatusDeleted DeliveryStatus = "deleted"
)

// Message is one entry in a conversation window.
//
// ID is server-assigned; before the server confirms a send, ID holds the
// locally generated client ID. ClientID survives reconciliation so that a
// completion arriving out of order can still find its optimistic entry.
// Seq is the server sequence used as the stable ordering key; it is zero
// while the message is still pending.
type Message struct {
	ID             string         `json:"id"`
	ClientID       string         `json:"client_id,omitempty"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Text           string         `json:"text,omitempty"`
	Attachment     *Attachment    `json:"attachment,omitempty"`
	ReplyTo        string         `json:"reply_to,omitempty"`
	Seq            int64          `json:"seq,omitempty"`
	Status         DeliveryStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Confirmed reports whether the entry carries a server identity.
func (m *Message) Confirmed() bool {
	return m.Seq > 0
}

// Draft is the user's send intent before it becomes a pending message.
type Draft struct {
	Text       string
	Attachment *Attachment
	ReplyTo    string
}

// Validate enforces the draft invariant: at least one of text and attachment
// must be non-empty. Both present is the caption case and is fine.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Text) == "" && d.Attachment == nil {
		return chat_errors.ErrEmptyDraft
	}
	return nil
}

// TypingState is the per-conversation view exposed to the presentation layer.
type TypingState struct {
	LocalTyping bool `json:"local_typing"`
	PeerTyping  bool `json:"peer_typing"`
}
