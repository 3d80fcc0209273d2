package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/logpipe"
	"github.com/dshaw/letl-go/queue"
	"github.com/dshaw/letl-go/store/memstore"
)

func buildPool(t *testing.T, job domain.Job, statuses *memstore.StatusStore) (*Pool, *queue.SetQueue) {
	t.Helper()
	catalog, err := domain.NewCatalog([]domain.Job{job})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}

	q := queue.New(1)
	pipeline := logpipe.New(slog.Default())
	logStore := memstore.NewLogStore()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go pipeline.Run(ctx, logStore)

	return New(catalog, q, statuses, pipeline, nil, slog.Default(), 1), q
}

func TestPool_DispatchSuccess(t *testing.T) {
	orig := spawnAttemptFn
	defer func() { spawnAttemptFn = orig }()
	spawnAttemptFn = func(context.Context, domain.Job, int, func(domain.LogRecord)) attemptOutcome {
		return attemptOutcome{result: domain.Success()}
	}

	statuses := memstore.NewStatusStore()
	pool, q := buildPool(t, domain.Job{Name: "job1", TimeoutSeconds: 5, Retries: 1}, statuses)

	if err := q.Put("job1"); err != nil {
		t.Fatalf("put: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go pool.Start(ctx)

	waitForStatus(t, statuses, "job1", domain.StatusSuccess)
}

func TestPool_RetriesOnErrorThenSucceeds(t *testing.T) {
	var calls int32
	orig := spawnAttemptFn
	defer func() { spawnAttemptFn = orig }()
	spawnAttemptFn = func(_ context.Context, _ domain.Job, attempt int, _ func(domain.LogRecord)) attemptOutcome {
		atomic.AddInt32(&calls, 1)
		if attempt == 0 {
			info := domain.ParseError(errors.New("transient failure"))
			return attemptOutcome{result: domain.JobResult{Err: &info}}
		}
		return attemptOutcome{result: domain.Success()}
	}

	statuses := memstore.NewStatusStore()
	pool, q := buildPool(t, domain.Job{Name: "job1", TimeoutSeconds: 5, Retries: 1}, statuses)
	if err := q.Put("job1"); err != nil {
		t.Fatalf("put: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go pool.Start(ctx)

	waitForStatus(t, statuses, "job1", domain.StatusSuccess)

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
	if len(statuses.AllHistory()) != 1 {
		t.Fatalf("expected exactly one history row for the whole dispatch, got %d", len(statuses.AllHistory()))
	}
}

func TestPool_TimeoutIsNeverRetried(t *testing.T) {
	var calls int32
	orig := spawnAttemptFn
	defer func() { spawnAttemptFn = orig }()
	spawnAttemptFn = func(context.Context, domain.Job, int, func(domain.LogRecord)) attemptOutcome {
		atomic.AddInt32(&calls, 1)
		return attemptOutcome{timedOut: true}
	}

	statuses := memstore.NewStatusStore()
	pool, q := buildPool(t, domain.Job{Name: "job1", TimeoutSeconds: 5, Retries: 3}, statuses)
	if err := q.Put("job1"); err != nil {
		t.Fatalf("put: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go pool.Start(ctx)

	waitForStatus(t, statuses, "job1", domain.StatusError)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("timeouts must not be retried, but spawnAttempt was called %d times", got)
	}
}

func TestPool_ExhaustsRetriesToError(t *testing.T) {
	var calls int32
	orig := spawnAttemptFn
	defer func() { spawnAttemptFn = orig }()
	spawnAttemptFn = func(context.Context, domain.Job, int, func(domain.LogRecord)) attemptOutcome {
		atomic.AddInt32(&calls, 1)
		info := domain.ParseError(errors.New("always fails"))
		return attemptOutcome{result: domain.JobResult{Err: &info}}
	}

	statuses := memstore.NewStatusStore()
	pool, q := buildPool(t, domain.Job{Name: "job1", TimeoutSeconds: 5, Retries: 2}, statuses)
	if err := q.Put("job1"); err != nil {
		t.Fatalf("put: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go pool.Start(ctx)

	waitForStatus(t, statuses, "job1", domain.StatusError)

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 1 initial attempt + 2 retries = 3 calls, got %d", got)
	}
}

func waitForStatus(t *testing.T, statuses *memstore.StatusStore, name string, want domain.Status) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		st, err := statuses.Status(context.Background(), name)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if st != nil && st.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to reach status %s", name, want)
}
