package roster

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCode covers wrong, mistyped and closed-session codes alike.
	ErrInvalidCode      = errors.New("invalid code")
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrSessionNotActive = errors.New("session not active")
	// ErrDuplicateRequest is returned by repositories when a request key was already used in the session.
	ErrDuplicateRequest = errors.New("duplicate request key")
	// ErrPickupCodeTaken is returned by repositories when another unclaimed entry of the session holds the pickup code.
	ErrPickupCodeTaken = errors.New("pickup code taken")
	// ErrRequestKeyReused means another subject already checked in with the request key.
	ErrRequestKeyReused = fmt.Errorf("%w: request key already used", ErrValidation)
)
