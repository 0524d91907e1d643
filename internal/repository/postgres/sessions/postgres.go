package sessions

import (
	"context"
	"errors"
	"time"

	sessionsdomain "checkin-app-go/internal/domain/sessions"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(sessionsdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) GetActiveByProgram(ctx context.Context, program string) (*sessionsdomain.Session, error) {
	return r.firstActive(r.db.WithContext(ctx), program)
}

func (r *PostgresRepository) LockActiveByProgram(ctx context.Context, program string) (*sessionsdomain.Session, error) {
	return r.firstActive(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), program)
}

func (r *PostgresRepository) firstActive(db *gorm.DB, program string) (*sessionsdomain.Session, error) {
	var session sessionsdomain.Session
	err := db.Where("program = ? AND status = ?", program, sessionsdomain.StatusActive).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sessionsdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *PostgresRepository) GetLatestByProgramDate(ctx context.Context, program, serviceDate string) (*sessionsdomain.Session, error) {
	var session sessionsdomain.Session
	err := r.db.WithContext(ctx).
		Where("program = ? AND service_date = ?", program, serviceDate).
		Order("opened_at desc").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sessionsdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]sessionsdomain.Session, error) {
	var sessions []sessionsdomain.Session
	if err := r.db.WithContext(ctx).
		Where("status = ?", sessionsdomain.StatusActive).
		Order("opened_at asc").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresRepository) ListByProgramDate(ctx context.Context, program, serviceDate string) ([]sessionsdomain.Session, error) {
	var sessions []sessionsdomain.Session
	if err := r.db.WithContext(ctx).
		Where("program = ? AND service_date = ?", program, serviceDate).
		Order("opened_at asc").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PostgresRepository) IsCodeActive(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sessionsdomain.Session{}).
		Where("code = ? AND status = ?", code, sessionsdomain.StatusActive).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) Create(ctx context.Context, session *sessionsdomain.Session) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if isUniqueViolation(err) {
		return sessionsdomain.ErrDuplicate
	}
	return err
}

func (r *PostgresRepository) Close(ctx context.Context, sessionID string, closedAt time.Time, closedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&sessionsdomain.Session{}).
		Where("id = ? AND status = ?", sessionID, sessionsdomain.StatusActive).
		Updates(map[string]interface{}{
			"status":     sessionsdomain.StatusClosed,
			"closed_at":  closedAt,
			"closed_by":  closedBy,
			"updated_at": closedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sessionsdomain.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
