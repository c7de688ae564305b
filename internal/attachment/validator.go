package attachment

import (
	"fmt"
	"path"
	"strings"

	"chatsphere/internal/config"
	"chatsphere/internal/domain"
	chat_errors "chatsphere/pkg/errors"
)

// Validator checks candidate media against the configured acceptance policy
// before it enters a draft. Validation is purely metadata-based (extension
// plus byte size); file contents are never inspected.
type Validator struct {
	maxSizeBytes int64
	kinds        map[string]domain.AttachmentKind
}

func NewValidator(policy config.Upload) *Validator {
	kinds := make(map[string]domain.AttachmentKind, len(policy.ImageExtensions)+len(policy.VideoExtensions))
	for _, ext := range policy.ImageExtensions {
		kinds[strings.ToLower(ext)] = domain.AttachmentImage
	}
	for _, ext := range policy.VideoExtensions {
		kinds[strings.ToLower(ext)] = domain.AttachmentVideo
	}
	return &Validator{maxSizeBytes: policy.MaxSizeBytes, kinds: kinds}
}

// Validate classifies the file by extension and checks the size cap. On
// success it returns the resolved kind; the tag is decided here once and
// never re-inferred downstream.
func (v *Validator) Validate(filename string, sizeBytes int64) (domain.AttachmentKind, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	kind, ok := v.kinds[ext]
	if !ok {
		return "", fmt.Errorf("%w: .%s", chat_errors.ErrUnsupportedFormat, ext)
	}
	if sizeBytes > v.maxSizeBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", chat_errors.ErrTooLarge, sizeBytes, v.maxSizeBytes)
	}
	return kind, nil
}
