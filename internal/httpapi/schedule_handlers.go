package httpapi

import (
	"net/http"

	"jobscout-engine/internal/scheduler"
)

type ScheduleHandler struct {
	Scheduler *scheduler.Scheduler
}

func (h ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Scheduler.Jobs())
}

// Run force-runs ?id= without moving its next scheduled fire.
func (h ScheduleHandler) Run(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_id", "id is required")
		return
	}
	if err := h.Scheduler.RunNow(id); err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true, "id": id})
}
