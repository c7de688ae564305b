package httpdto

import "chatsphere/internal/domain"

// SendMessageRequest is used for POST /v1/messages. The client id is the
// correlation key the daemon generated for the optimistic entry; the server
// echoes it back on the confirmation and the broadcast.
type SendMessageRequest struct {
	ClientID       string             `json:"client_id" binding:"required"`
	ConversationID string             `json:"conversation_id" binding:"required"`
	Text           string             `json:"text,omitempty"`
	ReplyTo        string             `json:"reply_to,omitempty"`
	Attachment     *domain.Attachment `json:"attachment,omitempty"`
}

// MessagesResponse is returned when fetching conversation history.
type MessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// ProfileUpdateRequest is used for PUT /v1/users/me.
type ProfileUpdateRequest struct {
	FullName  string `json:"full_name,omitempty"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
