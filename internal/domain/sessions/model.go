package sessions

import "time"

type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

const ServiceDateLayout = "2006-01-02"

// Session is one check-in window for a program. Only the partial unique
// indexes on (program) and (code) for active rows guarantee the one-active
// and unique-code invariants under concurrent opens.
type Session struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Program     string    `gorm:"type:varchar(64);not null;index:idx_sessions_program_date,priority:1"`
	Status      Status    `gorm:"type:varchar(16);not null"`
	Code        string    `gorm:"type:varchar(9);not null"`
	ServiceDate string    `gorm:"type:varchar(10);not null;index:idx_sessions_program_date,priority:2"`
	OpenedAt    time.Time `gorm:"not null"`
	OpenedBy    string    `gorm:"not null"`
	ClosedAt    *time.Time
	ClosedBy    *string
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s Session) IsActive() bool {
	return s.Status == StatusActive
}
