package httpapi

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"jobscout-engine/internal/events"
	"jobscout-engine/internal/poll"
	"jobscout-engine/internal/rank"
	"jobscout-engine/internal/scheduler"
	"jobscout-engine/internal/store"
)

type Deps struct {
	DB        *store.DB
	Scheduler *scheduler.Scheduler
	Runner    *poll.Runner
	Engine    *rank.Engine
	Hub       *events.Hub

	CfgVal  *atomic.Value // stores config.Config
	CfgPath string        // where portal toggles are persisted

	Gatherer prometheus.Gatherer
	Log      *zap.Logger
}
