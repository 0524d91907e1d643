package children

import "context"

type Repository interface {
	Create(ctx context.Context, child *Child) error
	ListByGuardian(ctx context.Context, guardianID string) ([]Child, error)
	GetByIDs(ctx context.Context, ids []string) ([]Child, error)
}
