package chat_errors

import "errors"

// Common errors
var (
	ErrValidation        = errors.New("invalid input")
	ErrNetwork           = errors.New("network unreachable")
	ErrTimeout           = errors.New("request timed out")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUpload            = errors.New("upload failed")
	ErrDeleteFailed      = errors.New("delete failed")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrTooLarge          = errors.New("file too large")
	ErrEmptyDraft        = errors.New("message has no text and no attachment")
)

// IsRecoverable reports whether the caller may retry the operation with the
// same draft. Validation failures are rejected before any network call and
// are never retried automatically.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}
