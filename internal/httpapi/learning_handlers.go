package httpapi

import (
	"net/http"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/store"
)

// LearningHandler exposes what the scorer has learned: the per-class patterns
// and the decision log behind them.
type LearningHandler struct {
	DB *store.DB
}

func (h LearningHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	pats, err := h.DB.ListPatterns(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if pats == nil {
		pats = []domain.LearnedPattern{}
	}
	WriteJSON(w, http.StatusOK, pats)
}

func (h LearningHandler) Matches(w http.ResponseWriter, r *http.Request) {
	candidate := r.URL.Query().Get("candidate")
	if candidate == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_candidate", "candidate is required")
		return
	}
	logs, err := h.DB.ListMatchLogs(r.Context(), candidate, queryInt(r, "limit", 100))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if logs == nil {
		logs = []domain.MatchLogEntry{}
	}
	WriteJSON(w, http.StatusOK, logs)
}
