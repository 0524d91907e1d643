package handler

import (
	"net/http"

	childrendomain "checkin-app-go/internal/domain/children"
)

type registerChildRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Allergies string `json:"allergies"`
	Notes     string `json:"notes"`
}

func (h *Handlers) ListChildren(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}
	kids, err := h.Children.ListMine(r.Context(), caller)
	if err != nil {
		h.fail(w, r, "children.list: list children failed", err, "user_id", caller.ID)
		return
	}

	result := make([]childResponse, 0, len(kids))
	for _, kid := range kids {
		result = append(result, toChildResponse(kid))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) RegisterChild(w http.ResponseWriter, r *http.Request) {
	var req registerChildRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}

	kid, err := h.Children.Register(r.Context(), caller, childrendomain.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: req.BirthDate,
		Allergies: req.Allergies,
		Notes:     req.Notes,
	})
	if err != nil {
		h.fail(w, r, "children.register: register child failed", err, "user_id", caller.ID)
		return
	}
	writeJSON(w, http.StatusCreated, toChildResponse(*kid))
}
