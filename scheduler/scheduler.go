// Package scheduler implements the periodic scan that decides which
// catalog jobs are ready to run and hands their names to the Job Queue.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/internal/metrics"
	"github.com/dshaw/letl-go/queue"
	"github.com/dshaw/letl-go/schedule"
	"github.com/dshaw/letl-go/store"
)

// runningGrace is added on top of a job's own TimeoutSeconds when deciding
// whether a Running row still reflects a legitimately in-flight dispatch.
// This exists so a crash that left a stale Running row doesn't permanently
// block rescheduling once the supervisor's orphan cleanup hasn't yet run.
const runningGrace = 10 * time.Second

// Scheduler periodically scans the catalog and enqueues every job whose
// schedule is due, dependencies are satisfied, and which is not already
// running.
type Scheduler struct {
	catalog  *domain.Catalog
	statuses store.StatusStore
	jobQueue *queue.SetQueue
	interval time.Duration
	logger   *slog.Logger
}

// New builds a Scheduler that scans every interval.
func New(catalog *domain.Catalog, statuses store.StatusStore, jobQueue *queue.SetQueue, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		catalog:  catalog,
		statuses: statuses,
		jobQueue: jobQueue,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start runs the scan loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shut down")
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

// scan evaluates every catalog job's readiness once. A failure evaluating
// one job is logged and does not stop the rest of the scan.
func (s *Scheduler) scan(ctx context.Context) {
	start := time.Now()
	now := start

	running, err := s.statuses.RunningNames(ctx)
	if err != nil {
		s.logger.Error("scan: list running names", "error", err)
		return
	}
	runningSet := make(map[string]struct{}, len(running))
	for _, n := range running {
		runningSet[n] = struct{}{}
	}

	for _, name := range s.catalog.Names() {
		job, ok := s.catalog.Get(name)
		if !ok {
			continue
		}
		ready, err := s.ready(ctx, job, now, runningSet)
		if err != nil {
			s.logger.Error("scan: readiness check failed", "job", name, "error", err)
			continue
		}
		if !ready {
			continue
		}
		if err := s.jobQueue.Put(name); err != nil {
			s.logger.Error("scan: enqueue failed", "job", name, "error", err)
			continue
		}
		s.logger.Debug("job enqueued", "job", name)
	}

	metrics.ScanCycleDuration.Observe(time.Since(start).Seconds())
}

// ready implements the Ready predicate: the job's schedule must be due, its
// dependencies (if any) must have last completed successfully since the
// job's own last success, and it must not already be running beyond grace.
func (s *Scheduler) ready(ctx context.Context, job domain.Job, now time.Time, runningSet map[string]struct{}) (bool, error) {
	if _, running := runningSet[job.Name]; running {
		inFlight, err := InFlight(ctx, s.statuses, job, now)
		if err != nil {
			return false, err
		}
		if inFlight {
			return false, nil
		}
	}

	if len(job.Schedule) > 0 {
		last, err := s.statuses.LatestCompletedTime(ctx, job.Name)
		if err != nil {
			return false, err
		}
		if !schedule.AnyDue(job.Schedule, last, now) {
			return false, nil
		}
	}

	satisfied, err := DependenciesSatisfied(ctx, s.statuses, job)
	if err != nil {
		return false, err
	}
	if !satisfied {
		return false, nil
	}

	return true, nil
}

// InFlight reports whether job's recorded status is Running and still
// within its own TimeoutSeconds plus runningGrace — i.e. whether the
// dispatch that set it Running could still be legitimately executing.
// Shared by the scan loop and the run-now admin endpoint so both agree on
// what "already running" means.
func InFlight(ctx context.Context, statuses store.StatusStore, job domain.Job, now time.Time) (bool, error) {
	status, err := statuses.Status(ctx, job.Name)
	if err != nil {
		return false, err
	}
	if status == nil || status.Status != domain.StatusRunning {
		return false, nil
	}
	window := time.Duration(job.TimeoutSeconds)*time.Second + runningGrace
	return now.Sub(status.Started) < window, nil
}

// DependenciesSatisfied reports whether every dependency of job has last
// completed successfully more recently than job's own last success, and
// that none of them is currently running. A dependency with no recorded
// status fails the predicate.
func DependenciesSatisfied(ctx context.Context, statuses store.StatusStore, job domain.Job) (bool, error) {
	if len(job.Dependencies) == 0 {
		return true, nil
	}

	ownLast, err := statuses.LatestCompletedTime(ctx, job.Name)
	if err != nil {
		return false, err
	}

	for dep := range job.Dependencies {
		depStatus, err := statuses.Status(ctx, dep)
		if err != nil {
			return false, err
		}
		if depStatus == nil || depStatus.Status == domain.StatusRunning {
			return false, nil
		}

		depLast, err := statuses.LatestCompletedTime(ctx, dep)
		if err != nil {
			return false, err
		}
		if depLast == nil {
			return false, nil
		}
		if ownLast != nil && !depLast.After(*ownLast) {
			return false, nil
		}
	}
	return true, nil
}
