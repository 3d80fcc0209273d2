package logpipe_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/logpipe"
	"github.com/dshaw/letl-go/store/memstore"
)

func newTestPipeline(t *testing.T) (*logpipe.Pipeline, *memstore.LogStore, func()) {
	t.Helper()
	logStore := memstore.NewLogStore()
	pipeline := logpipe.New(slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pipeline.Run(ctx, logStore)
		close(done)
	}()

	return pipeline, logStore, func() {
		cancel()
		<-done
	}
}

func TestProducer_SeverityThreshold(t *testing.T) {
	pipeline, logStore, stop := newTestPipeline(t)
	defer stop()

	p := logpipe.NewProducer("job1", domain.LevelInfo, pipeline)
	p.Debug("should be dropped")
	p.Info("should pass")

	waitForRecords(t, logStore, 1)
	recs := logStore.All()
	if len(recs) != 1 || recs[0].Message != "should pass" {
		t.Fatalf("expected exactly the info message to pass, got %+v", recs)
	}
}

func TestProducer_DedupWithinWindow(t *testing.T) {
	pipeline, logStore, stop := newTestPipeline(t)
	defer stop()

	p := logpipe.NewProducer("job1", domain.LevelDebug, pipeline)
	for i := 0; i < 5; i++ {
		p.Info("same message")
	}

	time.Sleep(50 * time.Millisecond)
	recs := logStore.All()
	if len(recs) != 1 {
		t.Fatalf("expected only the first of 5 identical messages to pass, got %d", len(recs))
	}
}

func waitForRecords(t *testing.T, logStore *memstore.LogStore, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(logStore.All()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d records", n)
}
