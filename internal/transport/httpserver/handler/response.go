package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"checkin-app-go/internal/domain/actor"
	childrendomain "checkin-app-go/internal/domain/children"
	"checkin-app-go/internal/domain/program"
	rosterdomain "checkin-app-go/internal/domain/roster"
	sessionsdomain "checkin-app-go/internal/domain/sessions"
	"checkin-app-go/pkg/logger"
)

const (
	invalidCodeMessage   = "Invalid or expired code"
	invalidPickupMessage = "Invalid or already used pickup code"
)

type errorEnvelope struct {
	Error   errorBody `json:"error"`
	Message string    `json:"message"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, dst interface{}) error {
	if err := decodeJSON(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handlers) logger(r *http.Request) logger.Logger {
	return logger.FromContext(r.Context(), h.log)
}

// fail maps a domain error to its HTTP status and logs it at the level its
// class deserves. Wrong codes share one message whatever the cause.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error, args ...any) {
	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		h.logger(r).InternalError(op, err, args...)
	} else {
		h.logger(r).BusinessError(op, err, args...)
	}
	writeError(w, status, code, message)
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, actor.ErrUnauthenticated):
		return http.StatusUnauthorized, "invalid_token", "authentication required"
	case errors.Is(err, actor.ErrForbidden):
		return http.StatusForbidden, "forbidden", "you do not have permission for this action"
	case errors.Is(err, rosterdomain.ErrInvalidCode):
		return http.StatusBadRequest, "invalid_code", invalidCodeMessage
	case errors.Is(err, rosterdomain.ErrValidation),
		errors.Is(err, childrendomain.ErrValidation),
		errors.Is(err, sessionsdomain.ErrInvalidDate):
		return http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, program.ErrUnknownProgram):
		return http.StatusBadRequest, "unknown_program", err.Error()
	case errors.Is(err, sessionsdomain.ErrConflict):
		return http.StatusConflict, "session_already_active", "a session is already active for this program"
	case errors.Is(err, rosterdomain.ErrSessionNotActive):
		return http.StatusConflict, "session_not_active", "check-in is not open for this program"
	case errors.Is(err, rosterdomain.ErrNotFound),
		errors.Is(err, childrendomain.ErrChildNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, sessionsdomain.ErrNotFound):
		return http.StatusNotFound, "session_not_found", "no active session"
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}

func requireActor(w http.ResponseWriter, r *http.Request) (*actor.Actor, bool) {
	a, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return nil, false
	}
	return a, true
}
