// Package memstore implements store.StatusStore and store.LogStore entirely
// in memory, for use in tests that exercise the scheduler/worker control
// loop without a real Postgres instance.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dshaw/letl-go/domain"
)

// StatusStore is an in-memory store.StatusStore.
type StatusStore struct {
	mu      sync.Mutex
	current map[string]domain.JobStatus
	history []domain.JobStatus
}

// NewStatusStore builds an empty in-memory Status Store.
func NewStatusStore() *StatusStore {
	return &StatusStore{current: make(map[string]domain.JobStatus)}
}

func (s *StatusStore) Start(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[name] = domain.JobStatus{
		JobName: name,
		Status:  domain.StatusRunning,
		Started: time.Now(),
	}
	return nil
}

func (s *StatusStore) Done(ctx context.Context, name string) error {
	return s.terminal(name, domain.StatusSuccess, nil, nil)
}

func (s *StatusStore) Error(ctx context.Context, name string, msg string) error {
	return s.terminal(name, domain.StatusError, &msg, nil)
}

func (s *StatusStore) Skipped(ctx context.Context, name string, reason string) error {
	return s.terminal(name, domain.StatusSkipped, nil, &reason)
}

func (s *StatusStore) terminal(name string, status domain.Status, errMsg, reason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.current[name]
	if !ok {
		cur = domain.JobStatus{JobName: name, Started: time.Now()}
	}
	ended := time.Now()
	cur.Status = status
	cur.Ended = &ended
	cur.ErrorMessage = errMsg
	cur.SkippedReason = reason
	s.current[name] = cur
	s.history = append(s.history, cur)
	return nil
}

func (s *StatusStore) Status(_ context.Context, name string) (*domain.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.current[name]
	if !ok {
		return nil, nil
	}
	return &cur, nil
}

func (s *StatusStore) LatestCompletedTime(_ context.Context, name string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, h := range s.history {
		if h.JobName != name || h.Status != domain.StatusSuccess || h.Ended == nil {
			continue
		}
		if latest == nil || h.Ended.After(*latest) {
			latest = h.Ended
		}
	}
	return latest, nil
}

func (s *StatusStore) DeleteOrphan(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.current, name)
	return nil
}

func (s *StatusStore) NamesWithStatus(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.current))
	for n := range s.current {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *StatusStore) RunningNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for n, st := range s.current {
		if st.Status == domain.StatusRunning {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *StatusStore) History(_ context.Context, name string, limit int) ([]domain.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.JobStatus
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		if s.history[i].JobName == name {
			out = append(out, s.history[i])
		}
	}
	return out, nil
}

func (s *StatusStore) DeleteHistoryBefore(_ context.Context, ts time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.history[:0]
	var removed int64
	for _, h := range s.history {
		if h.Ended != nil && h.Ended.Before(ts) {
			removed++
			continue
		}
		kept = append(kept, h)
	}
	s.history = kept
	return removed, nil
}

// AllHistory returns a copy of every history row, for test assertions.
func (s *StatusStore) AllHistory() []domain.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.JobStatus, len(s.history))
	copy(out, s.history)
	return out
}

// LogStore is an in-memory store.LogStore.
type LogStore struct {
	mu      sync.Mutex
	records []domain.LogRecord
}

// NewLogStore builds an empty in-memory Log Store.
func NewLogStore() *LogStore {
	return &LogStore{}
}

func (l *LogStore) Add(_ context.Context, rec domain.LogRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *LogStore) Recent(_ context.Context, loggerName string, limit int) ([]domain.LogRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.LogRecord
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		if l.records[i].LoggerName == loggerName {
			out = append(out, l.records[i])
		}
	}
	return out, nil
}

func (l *LogStore) DeleteBefore(_ context.Context, ts time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.records[:0]
	var removed int64
	for _, r := range l.records {
		if r.Timestamp.Before(ts) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	l.records = kept
	return removed, nil
}

// All returns a copy of every record, for test assertions.
func (l *LogStore) All() []domain.LogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.LogRecord, len(l.records))
	copy(out, l.records)
	return out
}
