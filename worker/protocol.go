// Package worker implements the Worker: it pops job names from the Job
// Queue, runs each dispatch in an isolated child process under a timeout,
// handles retries internally within the dispatch, and reports the outcome
// to the Status Store and Log Pipeline.
package worker

import (
	"os"

	"github.com/dshaw/letl-go/domain"
)

// envJobName and envAttempt mark a re-exec of the orchestrator's own
// binary as a job child process, rather than the normal supervisor entry
// point. Using environment variables instead of flags keeps this from
// colliding with whatever flags the embedding program's own main defines.
const (
	envJobName = "LETL_INTERNAL_JOB_EXEC"
	envAttempt = "LETL_INTERNAL_ATTEMPT"
)

// IsChildExec reports whether the current process was re-exec'd to run a
// single job attempt in isolation, and returns the job name if so.
func IsChildExec() (name string, ok bool) {
	name = os.Getenv(envJobName)
	return name, name != ""
}

// childResult is the wire format the child process emits on stdout as a
// single JSON line once the attempt finishes.
type childResult struct {
	Success bool                  `json:"success"`
	Error   *domain.ExceptionInfo `json:"error,omitempty"`
}

// childLogRecord is the wire format for one log line a child relays to the
// parent over its dedicated log pipe.
type childLogRecord struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
