package scheduler_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/queue"
	"github.com/dshaw/letl-go/scheduler"
	"github.com/dshaw/letl-go/store/memstore"
)

func noopRun(domain.Config, domain.Logger) error { return nil }

func TestScheduler_EnqueuesDueJob(t *testing.T) {
	catalog, err := domain.NewCatalog([]domain.Job{
		{
			Name:           "job1",
			TimeoutSeconds: 5,
			Run:            noopRun,
			Schedule:       []domain.Schedule{domain.EveryXSeconds(1)},
		},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}

	statuses := memstore.NewStatusStore()
	q := queue.New(1)
	s := scheduler.New(catalog, statuses, q, 10*time.Millisecond, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go s.Start(ctx)

	name, err := q.Take()
	if err != nil {
		t.Fatalf("expected job1 to be enqueued, got error: %v", err)
	}
	if name != "job1" {
		t.Fatalf("expected job1, got %q", name)
	}
}

func TestScheduler_SkipsUnsatisfiedDependency(t *testing.T) {
	catalog, err := domain.NewCatalog([]domain.Job{
		{Name: "upstream", TimeoutSeconds: 5, Run: noopRun, Schedule: []domain.Schedule{domain.EveryXSeconds(1)}},
		{
			Name:           "downstream",
			TimeoutSeconds: 5,
			Run:            noopRun,
			Dependencies:   map[string]struct{}{"upstream": {}},
			Schedule:       []domain.Schedule{domain.EveryXSeconds(1)},
		},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}

	statuses := memstore.NewStatusStore()
	q := queue.New(2)
	s := scheduler.New(catalog, statuses, q, 10*time.Millisecond, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if q.Contains("downstream") {
		t.Fatalf("downstream should not be enqueued before upstream has completed")
	}
	if !q.Contains("upstream") {
		t.Fatalf("upstream should be enqueued, it has no dependencies")
	}
}

func TestScheduler_SkipsAlreadyRunningWithinGrace(t *testing.T) {
	catalog, err := domain.NewCatalog([]domain.Job{
		{Name: "job1", TimeoutSeconds: 5, Run: noopRun, Schedule: []domain.Schedule{domain.EveryXSeconds(1)}},
	})
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}

	statuses := memstore.NewStatusStore()
	if err := statuses.Start(context.Background(), "job1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	q := queue.New(1)
	s := scheduler.New(catalog, statuses, q, 10*time.Millisecond, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	if q.Contains("job1") {
		t.Fatalf("a freshly-started job should not be re-enqueued within the running grace period")
	}
}
