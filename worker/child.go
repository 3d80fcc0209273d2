package worker

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dshaw/letl-go/domain"
)

// pipeLogger is the domain.Logger handed to a job's run-function inside
// the child process. It relays every record to the parent over fd 3 as a
// JSON line instead of going through the normal Log Pipeline directly —
// the parent re-injects these into its own pipeline so child logs still
// flow through the same throttling and durable storage path.
type pipeLogger struct {
	name string
	out  *os.File
}

func (l *pipeLogger) Name() string { return l.name }

func (l *pipeLogger) Debug(msg string) { l.send("debug", msg) }
func (l *pipeLogger) Info(msg string)  { l.send("info", msg) }
func (l *pipeLogger) Error(msg string) { l.send("error", msg) }

func (l *pipeLogger) Exception(err error) {
	if err == nil {
		return
	}
	l.send("error", domain.ParseError(err).Text())
}

func (l *pipeLogger) send(level, msg string) {
	line, err := json.Marshal(childLogRecord{Level: level, Message: msg})
	if err != nil {
		return
	}
	line = append(line, '\n')
	_, _ = l.out.Write(line)
}

// RunChildExec is the entrypoint an embedding program's main() calls when
// worker.IsChildExec reports true. It looks the named job up in catalog,
// runs exactly one attempt of its run-function, and writes the final
// childResult to stdout before returning the process exit code the parent
// should observe. Retries are the parent's concern: per the spec, a
// retried attempt relaunches a fresh child rather than looping inside this
// one, which keeps kill/timeout handling for each attempt independent.
//
// catalog must be identical to the one the parent process built — since
// this is the same binary re-executed, that holds as long as the
// embedding main() builds its catalog unconditionally before checking
// worker.IsChildExec.
func RunChildExec(catalog *domain.Catalog, jobName string) int {
	job, ok := catalog.Get(jobName)
	if !ok {
		writeResult(childResult{Success: false, Error: &domain.ExceptionInfo{
			ErrorType: "MissingJobImplementation",
			ErrorMsg:  fmt.Sprintf("no implementation was found for the job, %s.", jobName),
		}})
		return 1
	}

	logPipe := os.NewFile(3, "log-pipe")
	var logger domain.Logger
	if logPipe != nil {
		logger = &pipeLogger{name: jobName, out: logPipe}
	} else {
		logger = &pipeLogger{name: jobName, out: os.Stderr}
	}

	result := runWithRecover(job, logger)
	writeResult(result)
	if !result.Success {
		return 1
	}
	return 0
}

// runWithRecover executes one attempt, converting a panic in user code
// into the same structured ExceptionInfo an ordinary error would produce,
// rather than letting it crash the child process uncontrolled.
func runWithRecover(job domain.Job, logger domain.Logger) (result childResult) {
	defer func() {
		if r := recover(); r != nil {
			info := domain.ParsePanic(r, domain.CaptureFrames(3))
			result = childResult{Success: false, Error: &info}
		}
	}()

	err := job.Run(job.Config, logger)
	if err != nil {
		info := domain.ParseError(err)
		return childResult{Success: false, Error: &info}
	}
	return childResult{Success: true}
}

func writeResult(result childResult) {
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(result)
}
