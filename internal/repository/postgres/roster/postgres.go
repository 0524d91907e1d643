package roster

import (
	"context"
	"errors"
	"strings"
	"time"

	rosterdomain "checkin-app-go/internal/domain/roster"
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

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(rosterdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) LockActiveSessionByCode(ctx context.Context, code string) (*sessionsdomain.Session, error) {
	return r.lockActive(ctx, "code = ?", code)
}

func (r *PostgresRepository) LockActiveSessionByProgram(ctx context.Context, program string) (*sessionsdomain.Session, error) {
	return r.lockActive(ctx, "program = ?", program)
}

func (r *PostgresRepository) lockActive(ctx context.Context, where string, value string) (*sessionsdomain.Session, error) {
	var session sessionsdomain.Session
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where(where, value).
		Where("status = ?", sessionsdomain.StatusActive).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sessionsdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *PostgresRepository) CreateEntry(ctx context.Context, entry *rosterdomain.Entry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if isUniqueViolation(err) {
		if entry.PickupCode != nil {
			return rosterdomain.ErrPickupCodeTaken
		}
		return rosterdomain.ErrDuplicateRequest
	}
	return err
}

func (r *PostgresRepository) FindByRequestKey(ctx context.Context, sessionID, requestKey string) (*rosterdomain.Entry, error) {
	var entry rosterdomain.Entry
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND request_key = ?", sessionID, requestKey).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, rosterdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *PostgresRepository) IsPickupCodeOpen(ctx context.Context, sessionID, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&rosterdomain.Entry{}).
		Where("session_id = ? AND pickup_code = ? AND picked_up_at IS NULL", sessionID, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) MarkPickedUp(ctx context.Context, sessionID, code string, at time.Time, by string) (*rosterdomain.Entry, error) {
	var entry rosterdomain.Entry
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND pickup_code = ? AND picked_up_at IS NULL", sessionID, code).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, rosterdomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).
		Model(&rosterdomain.Entry{}).
		Where("id = ? AND picked_up_at IS NULL", entry.ID).
		Updates(map[string]interface{}{
			"picked_up_at": at,
			"picked_up_by": by,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != 1 {
		return nil, rosterdomain.ErrNotFound
	}

	entry.PickedUpAt = &at
	entry.PickedUpBy = &by
	return &entry, nil
}

func (r *PostgresRepository) ListEntries(ctx context.Context, filter rosterdomain.Filter) ([]rosterdomain.Entry, error) {
	query := r.db.WithContext(ctx).Model(&rosterdomain.Entry{})
	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.Program != "" {
		query = query.Where("program = ?", filter.Program)
	}
	if filter.ServiceDate != "" {
		query = query.Where("service_date = ?", filter.ServiceDate)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.FirstTime {
		query = query.Where("first_time = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		if digits := onlyDigits(search); digits != "" {
			query = query.Where("(LOWER(display_name) LIKE ? ESCAPE '\\' OR phone LIKE ?)", pattern, "%"+digits+"%")
		} else {
			query = query.Where("LOWER(display_name) LIKE ? ESCAPE '\\'", pattern)
		}
	}

	var entries []rosterdomain.Entry
	if err := query.Order("checked_in_at asc").Order("id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

func onlyDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
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
