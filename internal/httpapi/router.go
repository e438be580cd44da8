package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobscout-engine/internal/logger"
)

// NewHandler wires the operator API and wraps it in the standard middleware.
func NewHandler(d Deps) http.Handler {
	log := logger.OrNop(d.Log).Named("http")
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()

	hh := HealthHandler{DB: d.DB, Scheduler: d.Scheduler}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	sh := ScheduleHandler{Scheduler: d.Scheduler}
	mux.HandleFunc("/schedule", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.List,
	}))
	mux.HandleFunc("/schedule/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.Run,
	}))

	ph := &PortalsHandler{CfgVal: d.CfgVal, CfgPath: d.CfgPath, Scheduler: d.Scheduler, Runner: d.Runner, Hub: d.Hub, Log: log}
	mux.HandleFunc("/portals", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.List,
	}))
	mux.Handle("/portals/enable", LocalOnly(methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.Enable,
	})))
	mux.Handle("/portals/disable", LocalOnly(methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.Disable,
	})))

	pp := PostingsHandler{DB: d.DB}
	mux.HandleFunc("/postings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: pp.List,
	}))

	mh := MatchHandler{Engine: d.Engine, Hub: d.Hub, CfgVal: d.CfgVal}
	mux.HandleFunc("/score", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: mh.Score,
	}))
	mux.HandleFunc("/outcome", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: mh.Outcome,
	}))

	lh := LearningHandler{DB: d.DB}
	mux.HandleFunc("/patterns", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Patterns,
	}))
	mux.HandleFunc("/matches", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Matches,
	}))

	rh := RunsHandler{DB: d.DB}
	mux.HandleFunc("/runs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.List,
	}))

	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	mux.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	return Chain(mux, RequestID, Recover(log), AccessLog(log))
}
