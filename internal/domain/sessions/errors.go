package sessions

import "errors"

var (
	ErrConflict         = errors.New("session already active")
	ErrNotFound         = errors.New("session not found")
	ErrExhaustedRetries = errors.New("code generation exhausted retries")
	ErrInvalidDate      = errors.New("invalid date")
	// ErrDuplicate is returned by repositories when an insert hits one of the
	// active-session unique indexes.
	ErrDuplicate = errors.New("duplicate active session")
)
