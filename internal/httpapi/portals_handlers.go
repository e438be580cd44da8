package httpapi

import (
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/poll"
	"jobscout-engine/internal/scheduler"
)

type PortalsHandler struct {
	CfgVal    *atomic.Value // stores config.Config
	CfgPath   string
	Scheduler *scheduler.Scheduler
	Runner    *poll.Runner
	Hub       *events.Hub
	Log       *zap.Logger

	mu sync.Mutex // serializes read-modify-save of the config file
}

type portalView struct {
	domain.Portal
	BudgetRemaining int `json:"budgetRemaining"`
	BudgetLimit     int `json:"budgetLimit"`
}

func (h *PortalsHandler) List(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	out := make([]portalView, 0, len(cfg.Portals))
	for _, p := range cfg.Portals {
		v := portalView{Portal: p}
		if h.Runner != nil {
			v.BudgetRemaining, v.BudgetLimit = h.Runner.Budget(p)
		}
		out = append(out, v)
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *PortalsHandler) Enable(w http.ResponseWriter, r *http.Request)  { h.toggle(w, r, true) }
func (h *PortalsHandler) Disable(w http.ResponseWriter, r *http.Request) { h.toggle(w, r, false) }

func (h *PortalsHandler) toggle(w http.ResponseWriter, r *http.Request, enabled bool) {
	name := r.URL.Query().Get("name")
	if name == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_name", "name is required")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cur := h.CfgVal.Load().(config.Config)
	next, err := config.SetPortalEnabled(cur, name, enabled)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := config.SaveAtomic(h.CfgPath, next); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}
	h.CfgVal.Store(next)

	p, _ := next.Portal(name)
	if err := h.Runner.SyncPortal(h.Scheduler, p); err != nil {
		writeErr(w, r, err)
		return
	}

	h.Log.Info("portal toggled", zap.String("portal", name), zap.Bool("enabled", enabled))
	h.Hub.Publish(events.New(RequestIDFrom(r.Context()), events.PortalToggled, map[string]any{"portal": name, "enabled": enabled}))
	WriteJSON(w, http.StatusOK, p)
}
