package handler

import (
	"net/http"
	"strings"

	"checkin-app-go/internal/domain/actor"
	"checkin-app-go/internal/domain/program"
	"github.com/go-chi/chi/v5"
)

type startCheckInRequest struct {
	ServiceType string `json:"service_type"`
}

type programRequest struct {
	Program string `json:"program"`
}

// ActiveCheckIn answers the global entry screen: the current worship service
// session and its program, or null.
func (h *Handlers) ActiveCheckIn(w http.ResponseWriter, r *http.Request) {
	session, prog, err := h.Sessions.CurrentServiceSession(r.Context())
	if err != nil {
		h.fail(w, r, "checkin.active: load session failed", err)
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	caller, _ := actorFrom(r)
	writeJSON(w, http.StatusOK, activeCheckInResponse{
		Session: toSessionResponse(session, caller.Can(actor.PermManageSessions)),
		Event:   toEventResponse(prog),
	})
}

func (h *Handlers) StartCheckIn(w http.ResponseWriter, r *http.Request) {
	var req startCheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if strings.TrimSpace(req.ServiceType) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_type is required")
		return
	}
	h.openSession(w, r, "checkin.start", req.ServiceType)
}

// StopCheckIn closes the named service session, or the current one when the
// body is empty.
func (h *Handlers) StopCheckIn(w http.ResponseWriter, r *http.Request) {
	var req startCheckInRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	var err error
	if strings.TrimSpace(req.ServiceType) == "" {
		_, err = h.Sessions.CloseCurrentService(r.Context(), caller)
	} else {
		_, err = h.Sessions.CloseSession(r.Context(), caller, req.ServiceType)
	}
	if err != nil {
		h.fail(w, r, "checkin.stop: close session failed", err, "user_id", caller.ID, "program", req.ServiceType)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) StartEventSession(w http.ResponseWriter, r *http.Request) {
	h.openSession(w, r, "events.session_start", chi.URLParam(r, "id"))
}

func (h *Handlers) StopEventSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}
	programKey := chi.URLParam(r, "id")
	if _, err := h.Sessions.CloseSession(r.Context(), caller, programKey); err != nil {
		h.fail(w, r, "events.session_stop: close session failed", err, "user_id", caller.ID, "program", programKey)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) EventSessions(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}
	programKey := chi.URLParam(r, "id")
	sessions, err := h.Sessions.ListSessions(r.Context(), caller, programKey, r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, "events.sessions: list sessions failed", err, "user_id", caller.ID, "program", programKey)
		return
	}

	result := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, toSessionResponse(&sessions[i], true))
	}
	writeJSON(w, http.StatusOK, result)
}

// ActiveProgramSessions maps each children's program to its active session or null.
func (h *Handlers) ActiveProgramSessions(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}
	active, err := h.Sessions.ActiveByKind(r.Context(), program.KindChildren)
	if err != nil {
		h.fail(w, r, "programs.active_sessions: load sessions failed", err, "user_id", caller.ID)
		return
	}

	showCode := caller.Can(actor.PermManageSessions)
	result := make(map[string]*sessionResponse, len(active))
	for key, session := range active {
		if session == nil {
			result[key] = nil
			continue
		}
		resp := toSessionResponse(session, showCode)
		result[key] = &resp
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) OpenProgramSession(w http.ResponseWriter, r *http.Request) {
	var req programRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if strings.TrimSpace(req.Program) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "program is required")
		return
	}
	h.openSession(w, r, "programs.session_open", req.Program)
}

func (h *Handlers) CloseProgramSession(w http.ResponseWriter, r *http.Request) {
	var req programRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if strings.TrimSpace(req.Program) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "program is required")
		return
	}
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	session, err := h.Sessions.CloseSession(r.Context(), caller, req.Program)
	if err != nil {
		h.fail(w, r, "programs.session_close: close session failed", err, "user_id", caller.ID, "program", req.Program)
		return
	}
	writeJSON(w, http.StatusOK, sessionEnvelope{Session: toSessionResponse(session, true)})
}

func (h *Handlers) openSession(w http.ResponseWriter, r *http.Request, op, programKey string) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	session, err := h.Sessions.OpenSession(r.Context(), caller, programKey)
	if err != nil {
		h.fail(w, r, op+": open session failed", err, "user_id", caller.ID, "program", programKey)
		return
	}

	h.logger(r).Info(op+": session opened", "user_id", caller.ID, "program", session.Program, "session_id", session.ID)
	writeJSON(w, http.StatusCreated, sessionEnvelope{Session: toSessionResponse(session, true)})
}
