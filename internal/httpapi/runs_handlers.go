package httpapi

import (
	"net/http"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/store"
)

type RunsHandler struct {
	DB *store.DB
}

func (h RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.DB.ListRuns(r.Context(), r.URL.Query().Get("job"), queryInt(r, "limit", 100))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if runs == nil {
		runs = []domain.RunSummary{}
	}
	WriteJSON(w, http.StatusOK, runs)
}
