package domain

// AttachmentKind discriminates media once, at validation time. Downstream
// code switches on the tag and never re-infers the kind from the payload.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
)

// Attachment is a single media item carried by a message. Exactly one of
// Data (inline bytes, pre-upload) or URL (stable reference, post-upload) is
// set at any time.
type Attachment struct {
	Kind      AttachmentKind `json:"kind"`
	Name      string         `json:"name,omitempty"`
	SizeBytes int64          `json:"size_bytes"`
	URL       string         `json:"url,omitempty"`
	Data      []byte         `json:"data,omitempty"`
	Caption   string         `json:"caption,omitempty"`
}

// Uploaded reports whether the attachment already has a stable reference.
func (a *Attachment) Uploaded() bool {
	return a != nil && a.URL != ""
}
