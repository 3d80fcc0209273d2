// Package store defines the Status Store and Log Store contracts. The
// orchestrator depends on these interfaces, not on any concrete database
// client — Postgres implementations live in store/postgres, and an
// in-memory implementation used by tests lives in store/memstore.
package store

import (
	"context"
	"time"

	"github.com/dshaw/letl-go/domain"
)

// StatusStore persists per-job current state and history, and serves as
// the scheduler's memory of prior completions across restarts.
type StatusStore interface {
	// Start upserts the current-status row for name to Running. Any prior
	// terminal row is overwritten; history append happens on exit of the
	// previous run, not here.
	Start(ctx context.Context, name string) error

	// Done marks name's current row Success and appends a history copy.
	Done(ctx context.Context, name string) error

	// Error marks name's current row Error with msg and appends a history copy.
	Error(ctx context.Context, name string, msg string) error

	// Skipped marks name's current row Skipped with reason and appends a
	// history copy.
	Skipped(ctx context.Context, name string, reason string) error

	// Status returns the current row for name, or nil if none exists.
	Status(ctx context.Context, name string) (*domain.JobStatus, error)

	// LatestCompletedTime returns MAX(ended) WHERE status = success for name.
	LatestCompletedTime(ctx context.Context, name string) (*time.Time, error)

	// DeleteOrphan removes the current-status row for a job name no longer
	// present in the catalog, or a stale Running row left by a crash.
	DeleteOrphan(ctx context.Context, name string) error

	// NamesWithStatus returns every job name that currently has a status row.
	NamesWithStatus(ctx context.Context) ([]string, error)

	// RunningNames returns every job name whose current row is Running.
	RunningNames(ctx context.Context) ([]string, error)

	// History returns up to limit history rows for name, most recent first.
	History(ctx context.Context, name string, limit int) ([]domain.JobStatus, error)

	// DeleteHistoryBefore purges job_history rows older than ts.
	DeleteHistoryBefore(ctx context.Context, ts time.Time) (int64, error)
}

// LogStore appends structured log records and prunes them by age.
type LogStore interface {
	Add(ctx context.Context, rec domain.LogRecord) error
	Recent(ctx context.Context, loggerName string, limit int) ([]domain.LogRecord, error)
	DeleteBefore(ctx context.Context, ts time.Time) (int64, error)
}
