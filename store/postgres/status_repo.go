package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusRepository is the Postgres-backed Status Store. Concurrent workers
// touching different job names never conflict; the spec allows
// last-writer-wins for the pathological case of two writers racing on the
// same name, so no row locking beyond Postgres' own MVCC is required.
type StatusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository wraps pool as a Status Store.
func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{pool: pool}
}

func (r *StatusRepository) Start(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO status (job_name, status, started, ended, error_message, skipped_reason)
		VALUES ($1, 'running', NOW(), NULL, NULL, NULL)
		ON CONFLICT (job_name) DO UPDATE
		SET status = 'running', started = NOW(), ended = NULL, error_message = NULL, skipped_reason = NULL`,
		name)
	if err != nil {
		return fmt.Errorf("status start: %w", err)
	}
	return nil
}

func (r *StatusRepository) Done(ctx context.Context, name string) error {
	return r.terminal(ctx, name, domain.StatusSuccess, nil, nil)
}

func (r *StatusRepository) Error(ctx context.Context, name string, msg string) error {
	return r.terminal(ctx, name, domain.StatusError, &msg, nil)
}

func (r *StatusRepository) Skipped(ctx context.Context, name string, reason string) error {
	return r.terminal(ctx, name, domain.StatusSkipped, nil, &reason)
}

// terminal mutates the current row to a terminal state and appends a copy
// to job_history, inside one transaction per the spec's invariant that
// every terminal transition produces exactly one history row.
func (r *StatusRepository) terminal(ctx context.Context, name string, status domain.Status, errMsg, skippedReason *string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("status terminal begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE status
		SET    status = $2, ended = NOW(), error_message = $3, skipped_reason = $4
		WHERE  job_name = $1
		RETURNING job_name, status, started, ended, error_message, skipped_reason`,
		name, string(status), errMsg, skippedReason)

	updated, err := scanStatus(row)
	if err != nil {
		return fmt.Errorf("status terminal update: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO job_history (job_name, status, started, ended, error_message, skipped_reason)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		updated.JobName, string(updated.Status), updated.Started, updated.Ended,
		updated.ErrorMessage, updated.SkippedReason)
	if err != nil {
		return fmt.Errorf("status terminal history insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("status terminal commit: %w", err)
	}
	return nil
}

func (r *StatusRepository) Status(ctx context.Context, name string) (*domain.JobStatus, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT job_name, status, started, ended, error_message, skipped_reason
		FROM status WHERE job_name = $1`, name)

	s, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("status lookup: %w", err)
	}
	return &s, nil
}

func (r *StatusRepository) LatestCompletedTime(ctx context.Context, name string) (*time.Time, error) {
	var ended *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(ended) FROM job_history WHERE job_name = $1 AND status = 'success'`,
		name).Scan(&ended)
	if err != nil {
		return nil, fmt.Errorf("latest completed time: %w", err)
	}
	return ended, nil
}

func (r *StatusRepository) DeleteOrphan(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM status WHERE job_name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete orphan status: %w", err)
	}
	return nil
}

func (r *StatusRepository) NamesWithStatus(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT job_name FROM status`)
	if err != nil {
		return nil, fmt.Errorf("names with status: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("names with status scan: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *StatusRepository) RunningNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT job_name FROM status WHERE status = 'running'`)
	if err != nil {
		return nil, fmt.Errorf("running names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("running names scan: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *StatusRepository) History(ctx context.Context, name string, limit int) ([]domain.JobStatus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT job_name, status, started, ended, error_message, skipped_reason
		FROM job_history
		WHERE job_name = $1
		ORDER BY id DESC
		LIMIT $2`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("status history: %w", err)
	}
	defer rows.Close()

	var out []domain.JobStatus
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("status history scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *StatusRepository) DeleteHistoryBefore(ctx context.Context, ts time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM job_history WHERE ended < $1`, ts)
	if err != nil {
		return 0, fmt.Errorf("delete history before: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (domain.JobStatus, error) {
	var s domain.JobStatus
	var status string
	err := row.Scan(&s.JobName, &status, &s.Started, &s.Ended, &s.ErrorMessage, &s.SkippedReason)
	if err != nil {
		return domain.JobStatus{}, err
	}
	s.Status = domain.Status(status)
	return s, nil
}
