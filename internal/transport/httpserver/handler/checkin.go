package handler

import (
	"net/http"

	rosterdomain "checkin-app-go/internal/domain/roster"
	"github.com/go-chi/chi/v5"
)

type submitCodeRequest struct {
	Code       string `json:"code"`
	RequestKey string `json:"request_key"`
}

type guestCheckInRequest struct {
	Code          string `json:"code"`
	FullName      string `json:"fullName"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Adults        int    `json:"adults"`
	Children      int    `json:"children"`
	FirstTime     bool   `json:"firstTime"`
	ContactOK     bool   `json:"contactOk"`
	PrayerRequest string `json:"prayerRequest"`
	RequestKey    string `json:"request_key"`
}

type childrenCheckInRequest struct {
	ChildIDs              []string `json:"child_ids"`
	EmergencyContactName  string   `json:"emergency_contact_name"`
	EmergencyContactPhone string   `json:"emergency_contact_phone"`
	Notes                 string   `json:"notes"`
}

type childrenCheckInResponse struct {
	Checkins []childCheckInResponse `json:"checkins"`
}

func (h *Handlers) SubmitCode(w http.ResponseWriter, r *http.Request) {
	var req submitCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	key, err := requestKey(r, req.RequestKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.Roster.SubmitCode(r.Context(), caller, rosterdomain.SubmitCodeInput{Code: req.Code, RequestKey: key})
	if err != nil {
		h.fail(w, r, "checkin.submit: check-in failed", err, "user_id", caller.ID)
		return
	}

	writeJSON(w, http.StatusOK, checkInResponse{
		Message:   result.Greeting,
		Entry:     toEntryResponse(result.Entry),
		Duplicate: result.Duplicate,
	})
}

func (h *Handlers) GuestCheckIn(w http.ResponseWriter, r *http.Request) {
	var req guestCheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	key, err := requestKey(r, req.RequestKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	caller, _ := actorFrom(r)
	result, err := h.Roster.CheckInGuest(r.Context(), caller, rosterdomain.GuestInput{
		Code:          req.Code,
		FullName:      req.FullName,
		Phone:         req.Phone,
		Email:         req.Email,
		Adults:        req.Adults,
		Children:      req.Children,
		FirstTime:     req.FirstTime,
		ContactOK:     req.ContactOK,
		PrayerRequest: req.PrayerRequest,
		RequestKey:    key,
	})
	if err != nil {
		h.fail(w, r, "checkin.guest: check-in failed", err)
		return
	}

	writeJSON(w, http.StatusOK, checkInResponse{
		Message:   result.Greeting,
		Entry:     toEntryResponse(result.Entry),
		Duplicate: result.Duplicate,
	})
}

func (h *Handlers) ChildrenCheckIn(w http.ResponseWriter, r *http.Request) {
	var req childrenCheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	programKey := chi.URLParam(r, "program")
	entries, err := h.Roster.CheckInChildren(r.Context(), caller, programKey, rosterdomain.ChildrenInput{
		ChildIDs:              req.ChildIDs,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		Notes:                 req.Notes,
	})
	if err != nil {
		h.fail(w, r, "programs.checkin: check-in failed", err, "user_id", caller.ID, "program", programKey)
		return
	}

	writeJSON(w, http.StatusCreated, childrenCheckInResponse{Checkins: toChildCheckInResponses(entries)})
}
