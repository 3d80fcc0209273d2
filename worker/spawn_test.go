package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dshaw/letl-go/domain"
)

// TestMain lets the test binary re-exec itself as a job child process, the
// same way the real orchestrator binary does. A subprocess test is the
// only way to exercise spawnAttempt's process isolation without a second
// compiled artifact.
func TestMain(m *testing.M) {
	if jobName, ok := IsChildExec(); ok {
		os.Exit(RunChildExec(testCatalog(), jobName))
	}
	os.Exit(m.Run())
}

func testCatalog() *domain.Catalog {
	catalog, err := domain.NewCatalog([]domain.Job{
		{
			Name:           "ok",
			TimeoutSeconds: 5,
			Run: func(domain.Config, domain.Logger) error {
				return nil
			},
		},
		{
			Name:           "slow",
			TimeoutSeconds: 1,
			Run: func(domain.Config, domain.Logger) error {
				time.Sleep(3 * time.Second)
				return nil
			},
		},
		{
			Name:           "fails",
			TimeoutSeconds: 5,
			Run: func(_ domain.Config, logger domain.Logger) error {
				logger.Info("about to fail")
				return context.DeadlineExceeded
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return catalog
}

func getJob(t *testing.T, name string) domain.Job {
	t.Helper()
	job, ok := testCatalog().Get(name)
	if !ok {
		t.Fatalf("job %q not found in test catalog", name)
	}
	return job
}

func TestSpawnAttempt_Success(t *testing.T) {
	var logs []domain.LogRecord
	outcome := spawnAttempt(context.Background(), getJob(t, "ok"), 0, func(r domain.LogRecord) {
		logs = append(logs, r)
	})
	if outcome.infraErr != nil {
		t.Fatalf("unexpected infra error: %v", outcome.infraErr)
	}
	if outcome.timedOut {
		t.Fatalf("unexpected timeout")
	}
	if !outcome.result.IsSuccess() {
		t.Fatalf("expected success, got: %+v", outcome.result)
	}
}

func TestSpawnAttempt_Timeout(t *testing.T) {
	outcome := spawnAttempt(context.Background(), getJob(t, "slow"), 0, func(domain.LogRecord) {})
	if !outcome.timedOut {
		t.Fatalf("expected timeout, got: %+v", outcome)
	}
}

func TestSpawnAttempt_UserError(t *testing.T) {
	var logs []domain.LogRecord
	outcome := spawnAttempt(context.Background(), getJob(t, "fails"), 0, func(r domain.LogRecord) {
		logs = append(logs, r)
	})
	if outcome.timedOut || outcome.infraErr != nil {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.result.IsSuccess() {
		t.Fatalf("expected failure")
	}
	if outcome.result.Err.ErrorMsg != context.DeadlineExceeded.Error() {
		t.Fatalf("unexpected error message: %q", outcome.result.Err.ErrorMsg)
	}
	if len(logs) != 1 || logs[0].Message != "about to fail" {
		t.Fatalf("expected the child's log record to be relayed, got: %+v", logs)
	}
}
