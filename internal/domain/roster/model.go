package roster

import (
	"time"

	"checkin-app-go/internal/domain/sessions"
)

type EntryType string

const (
	TypeMember EntryType = "member"
	TypeGuest  EntryType = "guest"
	TypeChild  EntryType = "child"
)

// Entry is one attendance row. Subject fields are fixed at check-in; only the
// pickup columns change afterwards.
type Entry struct {
	ID                    string    `gorm:"type:uuid;primaryKey"`
	SessionID             string    `gorm:"type:uuid;not null;uniqueIndex:idx_roster_session_request,priority:1"`
	Program               string    `gorm:"type:varchar(64);not null;index:idx_roster_program_date,priority:1"`
	ServiceDate           string    `gorm:"type:varchar(10);not null;index:idx_roster_program_date,priority:2"`
	Type                  EntryType `gorm:"type:varchar(16);not null"`
	SubjectID             *string   `gorm:"type:varchar(64)"`
	DisplayName           string    `gorm:"type:varchar(160);not null"`
	Phone                 *string   `gorm:"type:varchar(32)"`
	Email                 *string   `gorm:"type:varchar(254)"`
	Adults                int       `gorm:"not null;default:0"`
	Children              int       `gorm:"not null;default:0"`
	FirstTime             bool      `gorm:"not null;default:false"`
	ContactOK             bool      `gorm:"not null;default:false"`
	PrayerRequest         *string   `gorm:"type:text"`
	CheckedInAt           time.Time `gorm:"not null"`
	CheckedInBy           *string   `gorm:"type:varchar(64)"`
	PickupCode            *string   `gorm:"type:varchar(9)"`
	PickedUpAt            *time.Time
	PickedUpBy            *string `gorm:"type:varchar(64)"`
	EmergencyContactName  *string `gorm:"type:varchar(160)"`
	EmergencyContactPhone *string `gorm:"type:varchar(32)"`
	Notes                 *string `gorm:"type:text"`
	Allergies             *string `gorm:"type:text"`
	RequestKey            *string `gorm:"type:varchar(128);uniqueIndex:idx_roster_session_request,priority:2"`
}

func (Entry) TableName() string {
	return "roster_entries"
}

func (e Entry) AwaitingPickup() bool {
	return e.Type == TypeChild && e.PickedUpAt == nil
}

type CheckInResult struct {
	Entry     Entry
	Session   sessions.Session
	Greeting  string
	Duplicate bool
}

type SubmitCodeInput struct {
	Code       string
	RequestKey string
}

type GuestInput struct {
	Code          string
	FullName      string
	Phone         string
	Email         string
	Adults        int
	Children      int
	FirstTime     bool
	ContactOK     bool
	PrayerRequest string
	RequestKey    string
}

type ChildrenInput struct {
	ChildIDs              []string
	EmergencyContactName  string
	EmergencyContactPhone string
	Notes                 string
}

type PickupResult struct {
	EntryID    string
	ChildName  string
	PickedUpAt time.Time
}

// Query narrows a roster listing. An empty Date means today.
type Query struct {
	Program       string
	Date          string
	Type          EntryType
	FirstTimeOnly bool
	Search        string
}

type Filter struct {
	SessionID   string
	Program     string
	ServiceDate string
	Type        EntryType
	FirstTime   bool
	Search      string
}

type Summary struct {
	Program        string `json:"program"`
	Date           string `json:"date"`
	Entries        int    `json:"entries"`
	Members        int    `json:"members"`
	Guests         int    `json:"guests"`
	FirstTime      int    `json:"first_time"`
	Children       int    `json:"children"`
	AdultHeadcount int    `json:"adult_headcount"`
	ChildHeadcount int    `json:"child_headcount"`
	PickedUp       int    `json:"picked_up"`
	AwaitingPickup int    `json:"awaiting_pickup"`
}
