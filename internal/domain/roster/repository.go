package roster

import (
	"context"
	"time"

	"checkin-app-go/internal/domain/sessions"
)

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	// Lock* methods take a shared row lock on an active session and return
	// sessions.ErrNotFound when it is missing or closed.
	LockActiveSessionByCode(ctx context.Context, code string) (*sessions.Session, error)
	LockActiveSessionByProgram(ctx context.Context, program string) (*sessions.Session, error)
	CreateEntry(ctx context.Context, entry *Entry) error
	FindByRequestKey(ctx context.Context, sessionID, requestKey string) (*Entry, error)
	IsPickupCodeOpen(ctx context.Context, sessionID, code string) (bool, error)
	// MarkPickedUp claims the unclaimed entry with code in the session. It
	// returns ErrNotFound when no unclaimed entry matches or another caller won.
	MarkPickedUp(ctx context.Context, sessionID, code string, at time.Time, by string) (*Entry, error)
	ListEntries(ctx context.Context, filter Filter) ([]Entry, error)
}
