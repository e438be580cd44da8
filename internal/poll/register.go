package poll

import (
	"context"
	"errors"
	"fmt"

	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scheduler"
)

// Register adds one job per enabled portal plus the maintenance and learning jobs.
func (r *Runner) Register(s *scheduler.Scheduler, cfg config.Config) error {
	for _, p := range cfg.Portals {
		if !p.Enabled {
			continue
		}
		if err := s.Add(r.portalJob(p)); err != nil {
			return err
		}
	}
	if err := s.Add(scheduler.Job{
		ID:    MaintenanceJobID,
		Name:  "delete stale drafts, expire old postings",
		Every: cfg.Maintenance.Every,
		Task:  summaryTask(r.Maintenance),
	}); err != nil {
		return err
	}
	return s.Add(scheduler.Job{
		ID:    LearningJobID,
		Name:  "refresh learned patterns",
		Every: cfg.Maintenance.LearnEvery,
		Task:  summaryTask(r.Learning),
	})
}

// SyncPortal schedules or unschedules a portal to match its Enabled flag.
func (r *Runner) SyncPortal(s *scheduler.Scheduler, p domain.Portal) error {
	if p.Enabled {
		err := s.Add(r.portalJob(p))
		if errors.Is(err, scheduler.ErrDuplicateJob) {
			return nil
		}
		return err
	}
	err := s.Remove(PortalJobID(p.Name))
	if errors.Is(err, scheduler.ErrUnknownJob) {
		return nil
	}
	return err
}

func (r *Runner) portalJob(p domain.Portal) scheduler.Job {
	return scheduler.Job{
		ID:    PortalJobID(p.Name),
		Name:  "harvest " + p.Name,
		Every: p.Every,
		Task: summaryTask(func(ctx context.Context) domain.RunSummary {
			return r.HarvestPortal(ctx, p)
		}),
	}
}

// summaryTask surfaces a failed summary as the job's last error.
func summaryTask(run func(context.Context) domain.RunSummary) scheduler.Task {
	return func(ctx context.Context) error {
		sum := run(ctx)
		if sum.Status == domain.RunFailed {
			return fmt.Errorf("%s: %s", sum.JobID, sum.Error)
		}
		return nil
	}
}
