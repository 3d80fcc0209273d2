package queue_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshaw/letl-go/domain"
	"github.com/dshaw/letl-go/queue"
)

func TestSetQueue_DedupOnPut(t *testing.T) {
	q := queue.New(5)

	if err := q.Put("a"); err != nil {
		t.Fatal(err)
	}
	if err := q.Put("a"); err != nil {
		t.Fatal(err)
	}
	if got := q.Len(); got != 1 {
		t.Fatalf("expected 1 distinct entry, got %d", got)
	}
}

func TestSetQueue_FIFOOrder(t *testing.T) {
	q := queue.New(5)
	for _, name := range []string{"a", "b", "c"} {
		if err := q.Put(name); err != nil {
			t.Fatal(err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Take()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("want %s, got %s", want, got)
		}
	}
}

func TestSetQueue_BlocksWhenFull(t *testing.T) {
	q := queue.New(1)
	if err := q.Put("a"); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		_ = q.Put("b")
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Put should have blocked while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := q.Take(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Put should have unblocked once capacity freed up")
	}
}

func TestSetQueue_TakeBlocksUntilAvailable(t *testing.T) {
	q := queue.New(2)
	result := make(chan string, 1)
	go func() {
		name, err := q.Take()
		if err != nil {
			return
		}
		result <- name
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Put("x"); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-result:
		if got != "x" {
			t.Fatalf("want x, got %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Take never unblocked")
	}
}

func TestSetQueue_AtMostOnceInFlightUnderConcurrentPuts(t *testing.T) {
	q := queue.New(10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Put("same-job")
		}()
	}
	wg.Wait()

	if got := q.Len(); got != 1 {
		t.Fatalf("expected exactly 1 queued instance after concurrent puts, got %d", got)
	}
}

func TestSetQueue_CloseUnblocksWaiters(t *testing.T) {
	q := queue.New(1)
	errc := make(chan error, 1)
	go func() {
		_, err := q.Take()
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, domain.ErrQueueClosed) {
			t.Fatalf("expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close should have unblocked the waiting Take")
	}

	if err := q.Put("y"); !errors.Is(err, domain.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed from Put after Close, got %v", err)
	}
}
