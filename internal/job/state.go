package job

// State is the status of a remote run as reported by the execution service.
type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed-out"
)

// Terminal reports whether no further transition can follow the state.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut:
		return true
	default:
		return false
	}
}

// Outcome is how a monitored job ended from the runner's point of view. It
// extends the service states with runner-side endings.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed-out"
	// OutcomeCancelled means the runner stopped watching because a sibling failed
	// or the run was interrupted.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeStuck means the configured maximum wait elapsed before the service
	// reported a terminal state.
	OutcomeStuck Outcome = "stuck"
	// OutcomeErrored means submission or polling itself failed.
	OutcomeErrored Outcome = "errored"
)

// OK is true only for a successful run.
func (o Outcome) OK() bool {
	return o == OutcomeSucceeded
}

// OutcomeFor maps a terminal service state to its outcome.
func OutcomeFor(s State) Outcome {
	switch s {
	case StateSucceeded:
		return OutcomeSucceeded
	case StateTimedOut:
		return OutcomeTimedOut
	default:
		return OutcomeFailed
	}
}
