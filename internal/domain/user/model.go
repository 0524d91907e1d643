package user

import "time"

// Profile mirrors the identity claims of the last verified token for a user.
type Profile struct {
	UserID     string    `gorm:"type:varchar(64);primaryKey"`
	Name       *string   `gorm:"type:varchar(160)"`
	Email      *string   `gorm:"type:varchar(254)"`
	Role       string    `gorm:"type:varchar(32);not null;default:member"`
	LastSeenAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "user_profiles"
}
