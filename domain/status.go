package domain

import "time"

// Status is the lifecycle state of a single job dispatch.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// JobStatus is the current (or historical) state of one job dispatch.
// At most one JobStatus row exists per job name in the "current status"
// table; every terminal transition also appends a copy to job_history.
type JobStatus struct {
	JobName       string
	Status        Status
	Started       time.Time
	Ended         *time.Time
	ErrorMessage  *string
	SkippedReason *string
}

// IsRunning reports whether the status is Running.
func (s JobStatus) IsRunning() bool { return s.Status == StatusRunning }

// IsTerminal reports whether the status is a terminal state.
func (s JobStatus) IsTerminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusError || s.Status == StatusSkipped
}
