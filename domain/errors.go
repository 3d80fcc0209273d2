package domain

import (
	"errors"
	"fmt"
)

// CatalogError is a fatal startup error: duplicate job names, a dependency
// referencing a job that was never registered, or an invalid job definition.
type CatalogError struct {
	Reason string
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog error: %s", e.Reason)
}

// TimedOutError reports that an attempt exceeded its wall-clock timeout.
// Per spec, timeouts are never retried.
type TimedOutError struct {
	JobName        string
	TimeoutSeconds int
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("the job, %s, timed out after %d seconds", e.JobName, e.TimeoutSeconds)
}

// InfrastructureError wraps a failure of a supporting system — the
// database, the job queue, or the log writer — as opposed to a failure in
// user code.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure error during %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// ErrJobNotFound reports an unknown job name. Catalog.Get does not return
// it (it reports a missing job with ok == false), and neither does
// StatusStore.Status (it returns a nil status).
var ErrJobNotFound = errors.New("job not found")

// ErrQueueClosed is returned by a JobQueue once it has been closed for
// shutdown and Put/Take are called again.
var ErrQueueClosed = errors.New("job queue closed")
