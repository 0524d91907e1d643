package sessions

import (
	"context"
	"time"
)

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	GetActiveByProgram(ctx context.Context, program string) (*Session, error)
	LockActiveByProgram(ctx context.Context, program string) (*Session, error)
	GetLatestByProgramDate(ctx context.Context, program, serviceDate string) (*Session, error)
	ListActive(ctx context.Context) ([]Session, error)
	ListByProgramDate(ctx context.Context, program, serviceDate string) ([]Session, error)
	IsCodeActive(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, session *Session) error
	Close(ctx context.Context, sessionID string, closedAt time.Time, closedBy string) error
}
