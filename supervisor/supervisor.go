// Package supervisor wires together the Status Store, Log Store, Log
// Pipeline, Job Queue, Scheduler and Worker Pool, and owns their startup
// and graceful shutdown sequence.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/dshaw/letl-go/alert"
	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/internal/metrics"
	"github.com/dshaw/letl-go/logpipe"
	"github.com/dshaw/letl-go/queue"
	"github.com/dshaw/letl-go/scheduler"
	"github.com/dshaw/letl-go/store"
	"github.com/dshaw/letl-go/worker"
	"github.com/robfig/cron/v3"
)

// retentionJobName is the name under which the internal log-retention
// sweep records its own status, kept out of the user catalog's namespace.
const retentionJobName = "delete_old_log_entries"

// retentionCronSpec runs the retention sweep once a day at 03:17, an
// off-peak minute chosen to avoid clustering with user schedules that tend
// to land on round hours.
const retentionCronSpec = "17 3 * * *"

// Supervisor owns every long-running component's lifecycle.
type Supervisor struct {
	catalog        *domain.Catalog
	statuses       store.StatusStore
	logs           store.LogStore
	pipeline       *logpipe.Pipeline
	jobQueue       *queue.SetQueue
	scheduler      *scheduler.Scheduler
	pool           *worker.Pool
	retentionCron  *cron.Cron
	daysLogsToKeep int
	logger         *slog.Logger
}

// Config bundles Supervisor's construction parameters.
type Config struct {
	Catalog        *domain.Catalog
	Statuses       store.StatusStore
	Logs           store.LogStore
	MaxWorkers     int
	ScanInterval   time.Duration
	DaysLogsToKeep int
	Notifier       alert.Sender
	Logger         *slog.Logger
}

// JobQueue returns the supervisor's Job Queue, so the admin API can enqueue
// an immediate run without duplicating queue construction.
func (s *Supervisor) JobQueue() *queue.SetQueue { return s.jobQueue }

// New builds a Supervisor from cfg.
func New(cfg Config) *Supervisor {
	pipeline := logpipe.New(cfg.Logger)
	jobQueue := queue.New(cfg.MaxWorkers)
	sched := scheduler.New(cfg.Catalog, cfg.Statuses, jobQueue, cfg.ScanInterval, cfg.Logger)
	pool := worker.New(cfg.Catalog, jobQueue, cfg.Statuses, pipeline, cfg.Notifier, cfg.Logger, cfg.MaxWorkers)

	return &Supervisor{
		catalog:        cfg.Catalog,
		statuses:       cfg.Statuses,
		logs:           cfg.Logs,
		pipeline:       pipeline,
		jobQueue:       jobQueue,
		scheduler:      sched,
		pool:           pool,
		retentionCron:  cron.New(),
		daysLogsToKeep: cfg.DaysLogsToKeep,
		logger:         cfg.Logger.With("component", "supervisor"),
	}
}

// Run performs orphan cleanup, starts every component, and blocks until ctx
// is cancelled, at which point it closes the queue, discarding names not yet
// taken, and waits for in-flight dispatches before returning.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.cleanupOrphans(ctx); err != nil {
		return err
	}

	if _, err := s.retentionCron.AddFunc(retentionCronSpec, func() {
		s.runRetentionSweep(context.Background())
	}); err != nil {
		return err
	}
	s.retentionCron.Start()

	go s.pipeline.Run(ctx, s.logs)
	go s.scheduler.Start(ctx)

	poolDone := make(chan struct{})
	go func() {
		s.pool.Start(ctx)
		close(poolDone)
	}()

	<-ctx.Done()
	s.logger.Info("shutdown requested")

	retentionCtx := s.retentionCron.Stop()
	<-retentionCtx.Done()

	s.jobQueue.Close()
	<-poolDone

	s.logger.Info("supervisor shut down")
	return nil
}

// cleanupOrphans removes status rows for job names no longer present in the
// catalog, and stale Running rows left behind by a crash, at startup before
// the scheduler begins scanning.
func (s *Supervisor) cleanupOrphans(ctx context.Context) error {
	names, err := s.statuses.NamesWithStatus(ctx)
	if err != nil {
		return err
	}
	removed := 0
	for _, name := range names {
		if name == retentionJobName {
			continue
		}
		if _, ok := s.catalog.Get(name); ok {
			continue
		}
		if err := s.statuses.DeleteOrphan(ctx, name); err != nil {
			return err
		}
		removed++
		metrics.OrphanCleanupTotal.WithLabelValues("orphan").Inc()
	}
	if removed > 0 {
		s.logger.Info("removed orphaned status rows", "count", removed)
	}

	running, err := s.statuses.RunningNames(ctx)
	if err != nil {
		return err
	}
	for _, name := range running {
		if err := s.statuses.DeleteOrphan(ctx, name); err != nil {
			return err
		}
		metrics.OrphanCleanupTotal.WithLabelValues("stale_running").Inc()
		s.logger.Warn("cleared stale running status from a previous crash", "job", name)
	}

	return nil
}

// runRetentionSweep deletes history and log rows older than
// daysLogsToKeep, recording its own outcome under retentionJobName the same
// way a catalog job would.
func (s *Supervisor) runRetentionSweep(ctx context.Context) {
	if err := s.statuses.Start(ctx, retentionJobName); err != nil {
		s.logger.Error("retention sweep: status start failed", "error", err)
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.daysLogsToKeep)

	histRemoved, err := s.statuses.DeleteHistoryBefore(ctx, cutoff)
	if err != nil {
		_ = s.statuses.Error(ctx, retentionJobName, err.Error())
		s.logger.Error("retention sweep: delete history failed", "error", err)
		return
	}

	logsRemoved, err := s.logs.DeleteBefore(ctx, cutoff)
	if err != nil {
		_ = s.statuses.Error(ctx, retentionJobName, err.Error())
		s.logger.Error("retention sweep: delete logs failed", "error", err)
		return
	}

	if err := s.statuses.Done(ctx, retentionJobName); err != nil {
		s.logger.Error("retention sweep: status done failed", "error", err)
	}
	s.logger.Info("retention sweep complete", "history_rows_removed", histRemoved, "log_rows_removed", logsRemoved)
}
