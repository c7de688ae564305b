package reply

import "chatsphere/internal/domain"

// Resolve maps a reply reference to its parent within the loaded window.
// A parent that scrolled out of the window or was deleted resolves to nil,
// never an error; callers render a neutral placeholder instead of failing
// the surrounding message.
func Resolve(window []domain.Message, replyToID string) *domain.Message {
	if replyToID == "" {
		return nil
	}
	for i := range window {
		if window[i].ID == replyToID {
			parent := window[i]
			return &parent
		}
	}
	return nil
}

// Preview is the one-line summary of a parent message shown above a reply.
// An unresolved parent yields an empty preview.
func Preview(parent *domain.Message) string {
	if parent == nil {
		return ""
	}
	if parent.Text != "" {
		return parent.Text
	}
	if parent.Attachment != nil {
		switch parent.Attachment.Kind {
		case domain.AttachmentImage:
			return "Photo"
		case domain.AttachmentVideo:
			return "Video"
		}
		return "Media"
	}
	return ""
}
