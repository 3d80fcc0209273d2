// Package logpipe implements the Log Pipeline: a bounded multi-producer,
// single-consumer channel carrying LogRecords from workers (and their
// isolated child processes) to a dedicated Log Writer goroutine, so that
// no producer ever blocks on database I/O.
package logpipe

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/store"
)

// defaultCapacity bounds how many records may be buffered before a
// producer's enqueue starts dropping records instead of blocking.
const defaultCapacity = 1024

// Pipeline is the shared channel plus its single consuming Log Writer.
type Pipeline struct {
	records chan domain.LogRecord
	logger  *slog.Logger
}

// New builds a Pipeline with the default buffer capacity.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		records: make(chan domain.LogRecord, defaultCapacity),
		logger:  logger.With("component", "log_pipeline"),
	}
}

// enqueue performs a non-blocking send; on overflow the record is dropped
// and a one-line notice is emitted to stderr, per the spec's "log producer
// never blocks" requirement.
func (p *Pipeline) enqueue(rec domain.LogRecord) {
	select {
	case p.records <- rec:
	default:
		fmt.Fprintf(os.Stderr, "log pipeline overflow: dropped record from %q\n", rec.LoggerName)
	}
}

// Run is the Log Writer: it loops reading records and calling store.Add.
// Store failures are reported to stderr and the loop continues — the
// writer never exits except when ctx is cancelled and the channel is
// drained.
func (p *Pipeline) Run(ctx context.Context, logStore store.LogStore) {
	p.logger.Info("log writer started")
	for {
		select {
		case rec, ok := <-p.records:
			if !ok {
				p.logger.Info("log writer shut down: channel closed")
				return
			}
			if err := logStore.Add(ctx, rec); err != nil {
				fmt.Fprintf(os.Stderr, "log writer: store add failed: %v (record: %s/%s)\n",
					err, rec.LoggerName, rec.Level)
			}
		case <-ctx.Done():
			p.drain(logStore)
			p.logger.Info("log writer shut down")
			return
		}
	}
}

// drain flushes whatever is left in the channel, best-effort, once shutdown
// has been requested.
func (p *Pipeline) drain(logStore store.LogStore) {
	for {
		select {
		case rec, ok := <-p.records:
			if !ok {
				return
			}
			if err := logStore.Add(context.Background(), rec); err != nil {
				fmt.Fprintf(os.Stderr, "log writer: flush failed: %v\n", err)
			}
		default:
			return
		}
	}
}
