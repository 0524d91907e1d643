package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	rosterdomain "checkin-app-go/internal/domain/roster"
	"github.com/go-chi/chi/v5"
)

type pickupRequest struct {
	Program    string `json:"program"`
	PickupCode string `json:"pickup_code"`
}

type pickupResponse struct {
	Message    string    `json:"message"`
	ChildName  string    `json:"child_name"`
	EntryID    string    `json:"entry_id"`
	PickedUpAt time.Time `json:"picked_up_at"`
}

func (h *Handlers) EventRoster(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}
	programKey := chi.URLParam(r, "id")
	entries, err := h.Roster.EventRoster(r.Context(), caller, programKey)
	if err != nil {
		h.fail(w, r, "events.roster: list roster failed", err, "user_id", caller.ID, "program", programKey)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

func (h *Handlers) StaffRoster(w http.ResponseWriter, r *http.Request) {
	query, ok := parseRosterQuery(w, r)
	if !ok {
		return
	}
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	entries, err := h.Roster.ListRoster(r.Context(), caller, query)
	if err != nil {
		h.fail(w, r, "staff.roster: list roster failed", err, "user_id", caller.ID, "program", query.Program)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

func (h *Handlers) StaffRosterSummary(w http.ResponseWriter, r *http.Request) {
	query, ok := parseRosterQuery(w, r)
	if !ok {
		return
	}
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	summary, err := h.Roster.Summary(r.Context(), caller, query)
	if err != nil {
		h.fail(w, r, "staff.roster_summary: summarize failed", err, "user_id", caller.ID, "program", query.Program)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) StaffRosterCSV(w http.ResponseWriter, r *http.Request) {
	query, ok := parseRosterQuery(w, r)
	if !ok {
		return
	}
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.Roster.ExportCSV(r.Context(), caller, query, &buf); err != nil {
		h.fail(w, r, "staff.roster_csv: export failed", err, "user_id", caller.ID, "program", query.Program)
		return
	}

	date := query.Date
	if date == "" {
		date = h.Sessions.Today()
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="roster-%s-%s.csv"`, query.Program, date))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) VerifyPickup(w http.ResponseWriter, r *http.Request) {
	var req pickupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if strings.TrimSpace(req.Program) == "" || strings.TrimSpace(req.PickupCode) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "program and pickup_code are required")
		return
	}
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.Roster.VerifyPickup(r.Context(), caller, req.Program, req.PickupCode)
	if err != nil {
		if status, _, _ := classify(err); status == http.StatusNotFound {
			h.logger(r).BusinessError("staff.pickup: pickup rejected", err, "user_id", caller.ID, "program", req.Program)
			writeError(w, http.StatusNotFound, "invalid_pickup_code", invalidPickupMessage)
			return
		}
		h.fail(w, r, "staff.pickup: verify failed", err, "user_id", caller.ID, "program", req.Program)
		return
	}

	h.logger(r).Info("staff.pickup: child released", "user_id", caller.ID, "program", req.Program, "entry_id", result.EntryID)
	writeJSON(w, http.StatusOK, pickupResponse{
		Message:    fmt.Sprintf("%s has been picked up.", result.ChildName),
		ChildName:  result.ChildName,
		EntryID:    result.EntryID,
		PickedUpAt: result.PickedUpAt,
	})
}

func parseRosterQuery(w http.ResponseWriter, r *http.Request) (rosterdomain.Query, bool) {
	values := r.URL.Query()
	programKey := strings.TrimSpace(values.Get("program"))
	if programKey == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "program is required")
		return rosterdomain.Query{}, false
	}

	query := rosterdomain.Query{
		Program: programKey,
		Date:    strings.TrimSpace(values.Get("date")),
		Search:  values.Get("q"),
	}

	switch kind := strings.ToLower(strings.TrimSpace(values.Get("type"))); kind {
	case "", "all":
	case "first_time", "first-time":
		query.FirstTimeOnly = true
	default:
		query.Type = rosterdomain.EntryType(kind)
	}

	firstTime, err := parseBoolParam(values.Get("first_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid first_time")
		return rosterdomain.Query{}, false
	}
	if firstTime {
		query.FirstTimeOnly = true
	}
	return query, true
}
