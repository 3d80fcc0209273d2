package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/internal/metrics"
	"github.com/dshaw/letl-go/logpipe"
	"github.com/dshaw/letl-go/queue"
	"github.com/dshaw/letl-go/store"
	"github.com/google/uuid"
)

// Notifier is consulted once a dispatch reaches a terminal Error state.
// Satisfied by the alert package's Sender, kept as a narrow interface here
// so the worker package does not import alert.
type Notifier interface {
	NotifyFailure(ctx context.Context, jobName, message string) error
}

// Pool is the Worker Pool: N goroutines, each looping take-dispatch-repeat
// against the shared Job Queue.
type Pool struct {
	catalog  *domain.Catalog
	jobQueue *queue.SetQueue
	statuses store.StatusStore
	pipeline *logpipe.Pipeline
	notifier Notifier
	logger   *slog.Logger
	size     int
}

// New builds a Worker Pool of size concurrent workers.
func New(catalog *domain.Catalog, jobQueue *queue.SetQueue, statuses store.StatusStore, pipeline *logpipe.Pipeline, notifier Notifier, logger *slog.Logger, size int) *Pool {
	return &Pool{
		catalog:  catalog,
		jobQueue: jobQueue,
		statuses: statuses,
		pipeline: pipeline,
		notifier: notifier,
		logger:   logger.With("component", "worker_pool"),
		size:     size,
	}
}

// Start launches the pool's workers and blocks until the Job Queue is closed
// and every worker has finished its current dispatch. Cancelling ctx alone
// does not stop the workers; ctx is passed on to each dispatch.
func (p *Pool) Start(ctx context.Context) {
	metrics.WorkerStartTime.Set(float64(time.Now().Unix()))
	defer metrics.WorkerShutdownsTotal.Inc()

	done := make(chan struct{}, p.size)
	for i := 0; i < p.size; i++ {
		id := fmt.Sprintf("worker-%d", i)
		go func() {
			p.loop(ctx, id)
			done <- struct{}{}
		}()
	}
	for i := 0; i < p.size; i++ {
		<-done
	}
	p.logger.Info("worker pool shut down")
}

func (p *Pool) loop(ctx context.Context, id string) {
	logger := p.logger.With("worker_id", id)
	for {
		name, err := p.jobQueue.Take()
		if err != nil {
			logger.Info("worker exiting: queue closed")
			return
		}
		p.dispatch(ctx, logger, name)
	}
}

// dispatch carries out the full lifecycle of one dequeued job name: one
// start/terminal status pair, spanning however many attempts the retry
// budget allows. Per the spec, retries loop internally here rather than
// re-entering the Job Queue, and a timeout is never retried.
func (p *Pool) dispatch(ctx context.Context, logger *slog.Logger, name string) {
	job, ok := p.catalog.Get(name)
	if !ok {
		logger.Error("dispatched job missing from catalog", "job", name)
		return
	}

	dispatchID := uuid.NewString()
	logger = logger.With("dispatch_id", dispatchID, "job", name)
	dispatchStart := time.Now()

	if err := p.statuses.Start(ctx, name); err != nil {
		logger.Error("status store start failed", "error", &domain.InfrastructureError{Op: "status.Start", Err: err})
		return
	}
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	producer := logpipe.NewProducer(name, domain.LevelDebug, p.pipeline)
	onLog := func(rec domain.LogRecord) {
		switch {
		case rec.Level >= domain.LevelError:
			producer.Error(rec.Message)
		case rec.Level >= domain.LevelInfo:
			producer.Info(rec.Message)
		default:
			producer.Debug(rec.Message)
		}
	}

	var outcome attemptOutcome
	for attempt := 0; ; attempt++ {
		logger.Info("dispatching attempt", "attempt", attempt)
		outcome = spawnAttemptFn(ctx, job, attempt, onLog)

		if outcome.infraErr != nil {
			p.finishError(ctx, logger, name, dispatchStart, fmt.Sprintf("infrastructure error: %v", outcome.infraErr))
			return
		}
		if outcome.timedOut {
			msg := (&domain.TimedOutError{JobName: name, TimeoutSeconds: job.TimeoutSeconds}).Error()
			p.finishError(ctx, logger, name, dispatchStart, msg)
			return
		}
		if outcome.result.IsSuccess() {
			p.finishSuccess(ctx, logger, name, dispatchStart)
			return
		}

		// user error: retry internally if budget remains
		if attempt < job.Retries {
			logger.Info("attempt failed, retrying", "attempt", attempt, "error", outcome.result.Err.Text())
			continue
		}
		p.finishError(ctx, logger, name, dispatchStart, outcome.result.Err.Text())
		return
	}
}

func (p *Pool) finishSuccess(ctx context.Context, logger *slog.Logger, name string, dispatchStart time.Time) {
	if err := p.statuses.Done(ctx, name); err != nil {
		logger.Error("status store done failed", "error", err)
	}
	metrics.JobsCompletedTotal.WithLabelValues("success").Inc()
	metrics.JobExecutionDuration.WithLabelValues("success").Observe(time.Since(dispatchStart).Seconds())
	logger.Info("job succeeded")
}

func (p *Pool) finishError(ctx context.Context, logger *slog.Logger, name string, dispatchStart time.Time, message string) {
	if err := p.statuses.Error(ctx, name, message); err != nil {
		logger.Error("status store error failed", "error", err)
	}
	metrics.JobsCompletedTotal.WithLabelValues("error").Inc()
	metrics.JobExecutionDuration.WithLabelValues("error").Observe(time.Since(dispatchStart).Seconds())
	logger.Error("job failed", "message", message)

	logpipe.NewProducer(name, domain.LevelDebug, p.pipeline).Error(message)

	if p.notifier != nil {
		if err := p.notifier.NotifyFailure(ctx, name, message); err != nil {
			logger.Error("failure notification failed", "error", err)
		}
	}
}
