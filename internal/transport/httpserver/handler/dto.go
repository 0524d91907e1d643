package handler

import (
	"time"

	"checkin-app-go/internal/domain/actor"
	childrendomain "checkin-app-go/internal/domain/children"
	"checkin-app-go/internal/domain/program"
	rosterdomain "checkin-app-go/internal/domain/roster"
	sessionsdomain "checkin-app-go/internal/domain/sessions"
)

type sessionResponse struct {
	ID          string     `json:"id"`
	Program     string     `json:"program"`
	Status      string     `json:"status"`
	Code        string     `json:"code,omitempty"`
	ServiceDate string     `json:"service_date"`
	StartedAt   time.Time  `json:"started_at"`
	OpenedBy    string     `json:"opened_by,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

type eventResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Location string `json:"location,omitempty"`
}

type activeCheckInResponse struct {
	Session sessionResponse `json:"session"`
	Event   eventResponse   `json:"event"`
}

type sessionEnvelope struct {
	Session sessionResponse `json:"session"`
}

type entryResponse struct {
	ID                    string     `json:"id"`
	SessionID             string     `json:"session_id"`
	Program               string     `json:"program"`
	ServiceDate           string     `json:"service_date"`
	Type                  string     `json:"type"`
	SubjectID             *string    `json:"subject_id,omitempty"`
	DisplayName           string     `json:"display_name"`
	Phone                 *string    `json:"phone,omitempty"`
	Email                 *string    `json:"email,omitempty"`
	Adults                int        `json:"adults"`
	Children              int        `json:"children"`
	FirstTime             bool       `json:"first_time"`
	ContactOK             bool       `json:"contact_ok"`
	PrayerRequest         *string    `json:"prayer_request,omitempty"`
	CheckedInAt           time.Time  `json:"checked_in_at"`
	AwaitingPickup        bool       `json:"awaiting_pickup,omitempty"`
	PickedUpAt            *time.Time `json:"picked_up_at,omitempty"`
	EmergencyContactName  *string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
	Allergies             *string    `json:"allergies,omitempty"`
}

// childCheckInResponse is the guardian's receipt. It is the only response
// carrying a pickup code.
type childCheckInResponse struct {
	entryResponse
	PickupCode string `json:"pickup_code"`
}

type checkInResponse struct {
	Message   string        `json:"message"`
	Entry     entryResponse `json:"entry"`
	Duplicate bool          `json:"duplicate,omitempty"`
}

type childResponse struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	BirthDate string  `json:"birth_date"`
	Allergies *string `json:"allergies,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type programResponse struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Location string `json:"location,omitempty"`
	MinAge   int    `json:"min_age,omitempty"`
	MaxAge   int    `json:"max_age,omitempty"`
}

type actorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	Staff bool   `json:"staff"`
}

// toSessionResponse hides the code from callers who cannot manage sessions.
func toSessionResponse(s *sessionsdomain.Session, showCode bool) sessionResponse {
	resp := sessionResponse{
		ID:          s.ID,
		Program:     s.Program,
		Status:      string(s.Status),
		ServiceDate: s.ServiceDate,
		StartedAt:   s.OpenedAt,
		ClosedAt:    s.ClosedAt,
	}
	if showCode {
		resp.Code = s.Code
		resp.OpenedBy = s.OpenedBy
	}
	return resp
}

func toEventResponse(p program.Program) eventResponse {
	return eventResponse{ID: p.Key, Title: p.Title, Kind: string(p.Kind), Location: p.Location}
}

func toEntryResponse(e rosterdomain.Entry) entryResponse {
	return entryResponse{
		ID:                    e.ID,
		SessionID:             e.SessionID,
		Program:               e.Program,
		ServiceDate:           e.ServiceDate,
		Type:                  string(e.Type),
		SubjectID:             e.SubjectID,
		DisplayName:           e.DisplayName,
		Phone:                 e.Phone,
		Email:                 e.Email,
		Adults:                e.Adults,
		Children:              e.Children,
		FirstTime:             e.FirstTime,
		ContactOK:             e.ContactOK,
		PrayerRequest:         e.PrayerRequest,
		CheckedInAt:           e.CheckedInAt,
		AwaitingPickup:        e.Type == rosterdomain.TypeChild && e.PickedUpAt == nil,
		PickedUpAt:            e.PickedUpAt,
		EmergencyContactName:  e.EmergencyContactName,
		EmergencyContactPhone: e.EmergencyContactPhone,
		Notes:                 e.Notes,
		Allergies:             e.Allergies,
	}
}

func toEntryResponses(entries []rosterdomain.Entry) []entryResponse {
	result := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, toEntryResponse(e))
	}
	return result
}

func toChildCheckInResponses(entries []rosterdomain.Entry) []childCheckInResponse {
	result := make([]childCheckInResponse, 0, len(entries))
	for _, e := range entries {
		resp := childCheckInResponse{entryResponse: toEntryResponse(e)}
		if e.PickupCode != nil {
			resp.PickupCode = *e.PickupCode
		}
		result = append(result, resp)
	}
	return result
}

func toChildResponse(c childrendomain.Child) childResponse {
	return childResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		BirthDate: c.BirthDate.Format(childrendomain.BirthDateLayout),
		Allergies: c.Allergies,
		Notes:     c.Notes,
	}
}

func toProgramResponse(p program.Program) programResponse {
	return programResponse{Key: p.Key, Title: p.Title, Kind: string(p.Kind), Location: p.Location, MinAge: p.MinAge, MaxAge: p.MaxAge}
}

func toActorResponse(a *actor.Actor) actorResponse {
	return actorResponse{ID: a.ID, Name: a.DisplayName(), Email: a.Email, Role: string(a.Role), Staff: a.Can(actor.PermManageSessions)}
}
