package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogRepository is the Postgres-backed Log Store consumed by the Log
// Pipeline's single writer goroutine.
type LogRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository wraps pool as a Log Store.
func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

func (r *LogRepository) Add(ctx context.Context, rec domain.LogRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO log (name, level, ts, message)
		VALUES ($1, $2, $3, $4)`,
		rec.LoggerName, rec.Level.String(), rec.Timestamp, rec.Message)
	if err != nil {
		return fmt.Errorf("log add: %w", err)
	}
	return nil
}

func (r *LogRepository) Recent(ctx context.Context, loggerName string, limit int) ([]domain.LogRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, level, ts, message
		FROM log
		WHERE name = $1
		ORDER BY id DESC
		LIMIT $2`, loggerName, limit)
	if err != nil {
		return nil, fmt.Errorf("log recent: %w", err)
	}
	defer rows.Close()

	var out []domain.LogRecord
	for rows.Next() {
		var rec domain.LogRecord
		var level string
		if err := rows.Scan(&rec.LoggerName, &level, &rec.Timestamp, &rec.Message); err != nil {
			return nil, fmt.Errorf("log recent scan: %w", err)
		}
		rec.Level = domain.ParseLevel(level)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *LogRepository) DeleteBefore(ctx context.Context, ts time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM log WHERE ts < $1`, ts)
	if err != nil {
		return 0, fmt.Errorf("log delete before: %w", err)
	}
	return tag.RowsAffected(), nil
}
