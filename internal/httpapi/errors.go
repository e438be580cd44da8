package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/rank"
	"jobscout-engine/internal/scheduler"
	"jobscout-engine/internal/store"
)

// APIError is the envelope every non-2xx response carries.
type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// known sentinels, checked in order with errors.Is
var errorMappings = []errorMapping{
	{store.ErrNotFound, http.StatusNotFound, "not_found"},
	{scheduler.ErrUnknownJob, http.StatusNotFound, "unknown_job"},
	{scheduler.ErrJobRunning, http.StatusConflict, "job_running"},
	{config.ErrUnknownPortal, http.StatusNotFound, "unknown_portal"},
	{domain.ErrInvalidOutcome, http.StatusBadRequest, "invalid_outcome"},
	{rank.ErrNoPendingMatch, http.StatusConflict, "no_pending_match"},
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeErr maps err onto the envelope; anything unrecognised is a 500.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			WriteError(w, r, m.status, m.code, err.Error())
			return
		}
	}
	WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
}
