package httpdto

import "time"

// Local daemon API types, consumed by the presentation layer.

// SendDraftRequest is used for POST /api/conversations/:id/messages.
// FileData carries inline bytes base64-encoded; FileURL references media that
// is already uploaded. At most one of the two is set.
type SendDraftRequest struct {
	Text     string `json:"text,omitempty"`
	ReplyTo  string `json:"reply_to,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FileData []byte `json:"file_data,omitempty"`
	FileURL  string `json:"file_url,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// TypingRequest is used for POST /api/conversations/:id/typing.
type TypingRequest struct {
	HasText bool `json:"has_text"`
}

// ReplyPreviewResponse is returned for
// GET /api/conversations/:id/messages/:messageId/reply. Resolved is false
// when the parent scrolled out of the window or was deleted; the preview is
// then empty and the client renders its placeholder.
type ReplyPreviewResponse struct {
	Resolved bool   `json:"resolved"`
	ParentID string `json:"parent_id,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

// UnseenResponse is returned for GET /api/conversations/:id/unseen.
type UnseenResponse struct {
	Count int `json:"count"`
}

// PresenceResponse is returned for GET /api/users/:id/presence.
type PresenceResponse struct {
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}
