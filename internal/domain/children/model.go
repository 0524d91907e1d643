package children

import (
	"strings"
	"time"
)

const BirthDateLayout = "2006-01-02"

type Child struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	GuardianID string    `gorm:"type:varchar(64);not null;index"`
	FirstName  string    `gorm:"type:varchar(80);not null"`
	LastName   string    `gorm:"type:varchar(80);not null"`
	BirthDate  time.Time `gorm:"type:date;not null"`
	Allergies  *string   `gorm:"type:text"`
	Notes      *string   `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Child) TableName() string {
	return "children"
}

func (c Child) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// AgeOn returns the child's age in whole years on day.
func (c Child) AgeOn(day time.Time) int {
	years := day.Year() - c.BirthDate.Year()
	if day.Month() < c.BirthDate.Month() || (day.Month() == c.BirthDate.Month() && day.Day() < c.BirthDate.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

type RegisterInput struct {
	FirstName string
	LastName  string
	BirthDate string
	Allergies string
	Notes     string
}
