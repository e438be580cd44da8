package httpapi

import (
	"context"
	"net/http"
	"time"

	"jobscout-engine/internal/scheduler"
	"jobscout-engine/internal/store"
)

type HealthHandler struct {
	DB        *store.DB
	Scheduler *scheduler.Scheduler
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)}
	if err := h.DB.Ping(ctx); err != nil {
		body["ok"] = false
		body["db_error"] = err.Error()
		WriteJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["jobs"] = len(h.Scheduler.Jobs())
	WriteJSON(w, http.StatusOK, body)
}
