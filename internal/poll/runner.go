// Package poll turns portals and housekeeping into scheduler jobs and records
// a run summary for every execution.
package poll

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobscout-engine/internal/clock"
	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/logger"
	"jobscout-engine/internal/metrics"
	"jobscout-engine/internal/rank"
	"jobscout-engine/internal/scrape"
	"jobscout-engine/internal/store"
)

const (
	MaintenanceJobID = "maintenance"
	LearningJobID    = "learning"

	// summaries must land even when the run's own context is gone
	summaryTimeout = 10 * time.Second
)

func PortalJobID(name string) string { return "portal:" + name }

type Deps struct {
	DB      *store.DB
	Scraper *scrape.Scraper
	Engine  *rank.Engine
	Hub     *events.Hub
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

type Runner struct {
	db          *store.DB
	scraper     *scrape.Scraper
	engine      *rank.Engine
	hub         *events.Hub
	clock       clock.Clock
	log         *zap.Logger
	metrics     *metrics.Metrics
	retention   time.Duration
	expireAfter time.Duration
}

func NewRunner(cfg config.Config, d Deps) *Runner {
	r := &Runner{
		db:          d.DB,
		scraper:     d.Scraper,
		engine:      d.Engine,
		hub:         d.Hub,
		clock:       d.Clock,
		log:         logger.OrNop(d.Log).Named("poll"),
		metrics:     d.Metrics,
		retention:   cfg.Maintenance.Retention,
		expireAfter: cfg.Maintenance.ExpireAfter,
	}
	if r.clock == nil {
		r.clock = clock.Real{}
	}
	return r
}

// HarvestPortal runs one harvest and persists its survivors. It always returns
// a summary; panics and store failures become a failed summary.
func (r *Runner) HarvestPortal(ctx context.Context, p domain.Portal) (sum domain.RunSummary) {
	sum = r.newSummary(PortalJobID(p.Name), p.Name)
	defer func() {
		if rec := recover(); rec != nil {
			sum.Status = domain.RunFailed
			sum.Error = fmt.Sprintf("panic: %v", rec)
			r.log.Error("portal run panicked", zap.String("portal", p.Name), zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
		}
		r.finish(&sum)
	}()

	res := r.scraper.Harvest(ctx, p)
	sum.Found = res.Found
	sum.Duplicates = res.Duplicates
	switch {
	case res.RateLimited:
		sum.Status = domain.RunRateLimited
		return sum
	case !res.Fetched:
		sum.Status = domain.RunFailed
		sum.Error = fmt.Sprintf("fetch failed after %d attempts", res.Attempts)
		return sum
	}

	for _, posting := range res.Postings {
		added, err := r.db.InsertPosting(ctx, posting)
		if err != nil {
			sum.Status = domain.RunFailed
			sum.Error = err.Error()
			return sum
		}
		if added {
			sum.Added++
		} else {
			// lost the race on the fingerprint index
			sum.Duplicates++
			r.metrics.Duplicate(p.Name, "insert")
		}
	}
	r.metrics.Inserted(p.Name, sum.Added)
	if sum.Added > 0 {
		r.hub.Emit(events.PostingsAdded, map[string]any{"portal": p.Name, "added": sum.Added})
	}
	return sum
}

// HarvestAll harvests every portal concurrently. One portal failing never
// cancels the others.
func (r *Runner) HarvestAll(ctx context.Context, portals []domain.Portal) []domain.RunSummary {
	out := make([]domain.RunSummary, len(portals))
	var g errgroup.Group
	for i, p := range portals {
		g.Go(func() error {
			out[i] = r.HarvestPortal(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Budget reports the fetches p may still make this hour and its hourly limit.
func (r *Runner) Budget(p domain.Portal) (remaining, limit int) {
	return r.scraper.Budget(p)
}

// Maintenance deletes stale drafts and expires old published postings.
func (r *Runner) Maintenance(ctx context.Context) (sum domain.RunSummary) {
	sum = r.newSummary(MaintenanceJobID, "")
	defer r.finish(&sum)

	now := r.clock.Now()
	deleted, err := r.db.DeleteOlderThan(ctx, domain.StatusDraft, now.Add(-r.retention))
	if err != nil {
		sum.Status = domain.RunFailed
		sum.Error = err.Error()
		return sum
	}
	sum.Deleted = int(deleted)

	expired, err := r.db.ExpireOlderThan(ctx, now.Add(-r.expireAfter))
	if err != nil {
		sum.Status = domain.RunFailed
		sum.Error = err.Error()
		return sum
	}
	sum.Expired = int(expired)
	return sum
}

// Learning refreshes the learned pattern table.
func (r *Runner) Learning(ctx context.Context) (sum domain.RunSummary) {
	sum = r.newSummary(LearningJobID, "")
	defer r.finish(&sum)

	n, err := r.engine.RefreshPatterns(ctx)
	if err != nil {
		r.metrics.AggregationFailed()
		sum.Status = domain.RunFailed
		sum.Error = err.Error()
		return sum
	}
	sum.Found = n
	return sum
}

func (r *Runner) newSummary(jobID, portal string) domain.RunSummary {
	return domain.RunSummary{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Portal:    portal,
		StartedAt: r.clock.Now().UTC(),
		Status:    domain.RunOK,
	}
}

func (r *Runner) finish(sum *domain.RunSummary) {
	sum.FinishedAt = r.clock.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
	defer cancel()
	if err := r.db.InsertRun(ctx, *sum); err != nil {
		r.log.Error("run summary not recorded", zap.String("job", sum.JobID), zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("job", sum.JobID),
		zap.String("status", sum.Status),
		zap.Int("found", sum.Found),
		zap.Int("added", sum.Added),
		zap.Int("duplicates", sum.Duplicates),
	}
	if sum.JobID == MaintenanceJobID {
		fields = append(fields, zap.Int("deleted", sum.Deleted), zap.Int("expired", sum.Expired))
	}
	if sum.Error != "" {
		r.log.Warn("run finished", append(fields, zap.String("error", sum.Error))...)
	} else {
		r.log.Info("run finished", fields...)
	}
	r.hub.Emit(events.RunFinished, sum)
}
