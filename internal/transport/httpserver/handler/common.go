package handler

import "net/http"

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) AuthMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireActor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toActorResponse(caller))
}

func (h *Handlers) Programs(w http.ResponseWriter, r *http.Request) {
	programs := h.Sessions.Catalog().List()
	result := make([]programResponse, 0, len(programs))
	for _, p := range programs {
		result = append(result, toProgramResponse(p))
	}
	writeJSON(w, http.StatusOK, result)
}
