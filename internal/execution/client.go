// Package execution describes the capability the runner needs from a remote
// job-execution service: submit a job and report the state of a run.
package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/kingrea/glue-runner/internal/job"
)

// ErrNoClient is returned when a component is wired without a client.
var ErrNoClient = errors.New("execution: client is required")

// RunHandle identifies one submitted run. It is owned by the monitor that
// created it.
type RunHandle string

// Client submits jobs and reports run state. Implementations must be safe for
// concurrent use; every job in a tier shares one client.
type Client interface {
	Start(ctx context.Context, spec job.Spec) (RunHandle, error)
	Poll(ctx context.Context, handle RunHandle) (job.State, error)
}

// Stopper is implemented by clients that can stop a run they started. The
// monitor uses it when it abandons a run after cancellation.
type Stopper interface {
	Stop(ctx context.Context, handle RunHandle) error
}

// SubmissionError reports that the service rejected a start request.
type SubmissionError struct {
	Job string
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("execution: start %s: %v", e.Job, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollError reports that the service could not return the state of a run.
// Transient and permanent failures are not distinguished.
type PollError struct {
	Job    string
	Handle RunHandle
	Err    error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("execution: poll %s run %s: %v", e.Job, e.Handle, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }
