package children

import (
	"context"

	childrendomain "checkin-app-go/internal/domain/children"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, child *childrendomain.Child) error {
	return r.db.WithContext(ctx).Create(child).Error
}

func (r *PostgresRepository) ListByGuardian(ctx context.Context, guardianID string) ([]childrendomain.Child, error) {
	var kids []childrendomain.Child
	if err := r.db.WithContext(ctx).
		Where("guardian_id = ?", guardianID).
		Order("birth_date asc").
		Order("first_name asc").
		Find(&kids).Error; err != nil {
		return nil, err
	}
	return kids, nil
}

// GetByIDs skips ids that are not UUIDs; they cannot match a stored child.
func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []string) ([]childrendomain.Child, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []childrendomain.Child{}, nil
	}

	var kids []childrendomain.Child
	if err := r.db.WithContext(ctx).Where("id IN ?", valid).Find(&kids).Error; err != nil {
		return nil, err
	}
	return kids, nil
}
