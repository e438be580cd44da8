package httpapi

import (
	"errors"
	"net/http"
	"sync/atomic"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/rank"
	"jobscout-engine/internal/store"
)

type MatchHandler struct {
	Engine *rank.Engine
	Hub    *events.Hub
	CfgVal *atomic.Value // stores config.Config; nil means learning is on
}

type scoreRequest struct {
	PostingID   string         `json:"postingId"`
	Profile     domain.Profile `json:"profile"`
	UseLearning *bool          `json:"useLearning,omitempty"` // default scoring.use_learning
}

type outcomeRequest struct {
	PostingID   string `json:"postingId"`
	CandidateID string `json:"candidateId"`
	Outcome     string `json:"outcome"`
}

func (h MatchHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.PostingID == "" || req.Profile.CandidateID == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "postingId and profile.candidateId are required")
		return
	}
	useLearning := h.defaultLearning()
	if req.UseLearning != nil {
		useLearning = *req.UseLearning
	}

	m, err := h.Engine.ScoreByID(r.Context(), req.PostingID, req.Profile, useLearning)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "unknown_posting", err.Error())
		return
	}
	if err != nil && m.MatchID == "" {
		writeErr(w, r, err)
		return
	}
	// a failed log append still returns the computed match
	WriteJSON(w, http.StatusOK, m)
}

func (h MatchHandler) Outcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := h.Engine.ReportOutcome(r.Context(), req.PostingID, req.CandidateID, domain.Outcome(req.Outcome)); err != nil {
		writeErr(w, r, err)
		return
	}
	h.Hub.Publish(events.New(RequestIDFrom(r.Context()), events.OutcomeReported, req))
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h MatchHandler) defaultLearning() bool {
	if h.CfgVal == nil {
		return true
	}
	cfg, ok := h.CfgVal.Load().(config.Config)
	return !ok || cfg.Scoring.UseLearning
}
