package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"jobscout-engine/internal/clock"
	"jobscout-engine/internal/logger"
	"jobscout-engine/internal/metrics"
)

type Task func(ctx context.Context) error

var (
	ErrUnknownJob   = errors.New("unknown job")
	ErrDuplicateJob = errors.New("job already registered")
	ErrJobRunning   = errors.New("job is already running")
)

type Job struct {
	ID    string
	Name  string
	Every time.Duration
	Task  Task
}

type JobInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NextRun   time.Time `json:"next_run"`
	Trigger   string    `json:"trigger"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

type entry struct {
	job     Job
	running *atomic.Bool // shared by every registration of job.ID
	stop    chan struct{}

	// guarded by Scheduler.mu
	next    time.Time
	lastRun time.Time
	lastErr string
}

// Scheduler fires each job on its own interval. A job never overlaps itself:
// a trigger that arrives while the previous run is still going is dropped.
type Scheduler struct {
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	jobs    map[string]*entry
	busy    map[string]*atomic.Bool // outlives Remove while a run is in flight
	ctx     context.Context
	started bool
	stopped bool

	loops sync.WaitGroup
	runs  sync.WaitGroup
}

func New(c clock.Clock, log *zap.Logger, m *metrics.Metrics) *Scheduler {
	if c == nil {
		c = clock.Real{}
	}
	return &Scheduler{
		clock:   c,
		log:     logger.OrNop(log).Named("scheduler"),
		metrics: m,
		jobs:    make(map[string]*entry),
		busy:    make(map[string]*atomic.Bool),
		ctx:     context.Background(),
	}
}

// Add registers a job. Its first run is one interval from now. Re-adding an id
// whose previous registration is still running shares that run's state, so
// the new registration cannot overlap it.
func (s *Scheduler) Add(j Job) error {
	if j.ID == "" || j.Task == nil || j.Every <= 0 {
		return fmt.Errorf("job %q: id, task and positive interval are required", j.ID)
	}
	if j.Name == "" {
		j.Name = j.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return fmt.Errorf("%s: %w", j.ID, ErrDuplicateJob)
	}
	flag, ok := s.busy[j.ID]
	if !ok {
		flag = new(atomic.Bool)
		s.busy[j.ID] = flag
	}
	e := &entry{job: j, running: flag, stop: make(chan struct{}), next: s.clock.Now().Add(j.Every)}
	s.jobs[j.ID] = e
	if s.started && !s.stopped {
		s.startLoop(e)
	}
	s.log.Info("job added", zap.String("job", j.ID), zap.Duration("every", j.Every))
	return nil
}

// Remove unschedules a job. A run already in progress is left to finish.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownJob)
	}
	delete(s.jobs, id)
	if !e.running.Load() {
		delete(s.busy, id)
	}
	close(e.stop)
	s.log.Info("job removed", zap.String("job", id), zap.Bool("running", e.running.Load()))
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	// runs outlive ctx; Stop waits for them instead of cancelling
	s.ctx = context.WithoutCancel(ctx)
	for _, e := range s.jobs {
		s.startLoop(e)
	}
	s.log.Info("started", zap.Int("jobs", len(s.jobs)))
}

// Stop cancels every pending timer and waits for in-flight runs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for _, e := range s.jobs {
		close(e.stop)
	}
	s.jobs = make(map[string]*entry)
	s.mu.Unlock()

	s.loops.Wait()
	s.runs.Wait()
	s.log.Info("stopped")
}

// RunNow starts a job immediately. The job's next scheduled fire is unchanged.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	e, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownJob)
	}
	if !s.trigger(e, "manual") {
		return fmt.Errorf("%s: %w", id, ErrJobRunning)
	}
	return nil
}

func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, JobInfo{
			ID:        e.job.ID,
			Name:      e.job.Name,
			NextRun:   e.next,
			Trigger:   "interval[" + e.job.Every.String() + "]",
			Running:   e.running.Load(),
			LastRun:   e.lastRun,
			LastError: e.lastErr,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// startLoop must be called with s.mu held.
func (s *Scheduler) startLoop(e *entry) {
	s.loops.Add(1)
	go s.loop(e)
}

func (s *Scheduler) loop(e *entry) {
	defer s.loops.Done()
	for {
		s.mu.Lock()
		wait := e.next.Sub(s.clock.Now())
		s.mu.Unlock()

		select {
		case <-e.stop:
			return
		case <-s.clock.After(wait):
		}

		s.mu.Lock()
		e.next = s.clock.Now().Add(e.job.Every)
		s.mu.Unlock()

		s.trigger(e, "interval")
	}
}

// trigger starts a run unless one is already going. It reports whether a run started.
func (s *Scheduler) trigger(e *entry, reason string) bool {
	if !e.running.CompareAndSwap(false, true) {
		s.log.Info("previous run still in progress, trigger coalesced",
			zap.String("job", e.job.ID), zap.String("reason", reason))
		s.metrics.JobCoalesced(e.job.ID)
		return false
	}

	s.mu.Lock()
	// a removed registration must not start a run the next Add cannot see
	if s.stopped || s.jobs[e.job.ID] != e {
		s.mu.Unlock()
		e.running.Store(false)
		return false
	}
	s.runs.Add(1)
	ctx := s.ctx
	s.mu.Unlock()

	go func() {
		defer s.runs.Done()
		defer s.release(e)
		s.run(ctx, e, reason)
	}()
	return true
}

// release clears the running flag and forgets it once no registration uses it.
func (s *Scheduler) release(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.running.Store(false)
	if _, registered := s.jobs[e.job.ID]; !registered && s.busy[e.job.ID] == e.running {
		delete(s.busy, e.job.ID)
	}
}

func (s *Scheduler) run(ctx context.Context, e *entry, reason string) {
	start := s.clock.Now()
	s.log.Debug("run started", zap.String("job", e.job.ID), zap.String("reason", reason))

	err := safeRun(ctx, e.job.Task)
	took := s.clock.Now().Sub(start)

	status := "ok"
	errText := ""
	if err != nil {
		status = "failed"
		errText = err.Error()
		s.log.Warn("run failed", zap.String("job", e.job.ID), zap.Duration("took", took), zap.Error(err))
	} else {
		s.log.Info("run finished", zap.String("job", e.job.ID), zap.Duration("took", took))
	}
	s.metrics.JobRun(e.job.ID, status, took)

	s.mu.Lock()
	e.lastRun = start
	e.lastErr = errText
	s.mu.Unlock()
}

func safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return task(ctx)
}
