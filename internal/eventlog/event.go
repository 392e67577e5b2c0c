package eventlog

import (
	"fmt"
	"time"

	"github.com/kingrea/glue-runner/internal/job"
)

// Kind names a lifecycle transition.
type Kind string

const (
	KindRunStarted    Kind = "run-started"
	KindTierStarted   Kind = "tier-started"
	KindJobSubmitted  Kind = "job-submitted"
	KindJobProgress   Kind = "job-progress"
	KindJobSucceeded  Kind = "job-succeeded"
	KindJobFailed     Kind = "job-failed"
	KindJobCancelled  Kind = "job-cancelled"
	KindJobStuck      Kind = "job-stuck"
	KindJobErrored    Kind = "job-errored"
	KindTierSucceeded Kind = "tier-succeeded"
	KindTierFailed    Kind = "tier-failed"
	KindRunComplete   Kind = "run-complete"
)

// Level represents the severity of an event.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Event is one structured log record. Job events carry the resolved spec
// fields so every line can be read on its own.
type Event struct {
	Time            time.Time   `json:"time"`
	RunID           string      `json:"run_id"`
	Kind            Kind        `json:"kind"`
	Tier            int         `json:"tier"`
	Job             string      `json:"job,omitempty"`
	WorkerType      string      `json:"worker_type,omitempty"`
	NumberOfWorkers int         `json:"number_of_workers,omitempty"`
	FromDate        string      `json:"from_date,omitempty"`
	ToDate          string      `json:"to_date,omitempty"`
	Handle          string      `json:"handle,omitempty"`
	State           job.State   `json:"state,omitempty"`
	Outcome         job.Outcome `json:"outcome,omitempty"`
	Message         string      `json:"message,omitempty"`
	Err             string      `json:"error,omitempty"`
}

// ForJob starts an event pre-filled with the spec's fields.
func ForJob(kind Kind, spec job.Spec) Event {
	return Event{
		Kind:            kind,
		Tier:            spec.Priority,
		Job:             spec.Name,
		WorkerType:      spec.WorkerType,
		NumberOfWorkers: spec.NumberOfWorkers,
		FromDate:        spec.FromDate,
		ToDate:          spec.ToDate,
	}
}

// Level derives the severity from the kind.
func (e Event) Level() Level {
	switch e.Kind {
	case KindJobFailed, KindJobErrored, KindTierFailed:
		return LevelError
	case KindJobCancelled, KindJobStuck:
		return LevelWarn
	case KindRunComplete:
		if e.Outcome != "" && !e.Outcome.OK() {
			return LevelError
		}
		return LevelInfo
	default:
		return LevelInfo
	}
}

// Text renders the event as a single human-readable line.
func (e Event) Text() string {
	describe := fmt.Sprintf("%s with priority %d, worker type %s, workers %d, from-date %s, to-date %s",
		e.Job, e.Tier, e.WorkerType, e.NumberOfWorkers, e.FromDate, e.ToDate)
	var line string
	switch e.Kind {
	case KindRunStarted:
		line = fmt.Sprintf("Starting run %s", e.RunID)
	case KindTierStarted:
		line = fmt.Sprintf("Running jobs with priority %d", e.Tier)
	case KindJobSubmitted:
		line = fmt.Sprintf("Started job %s as run %s", describe, e.Handle)
	case KindJobProgress:
		line = fmt.Sprintf("Job %s is still running. Status: %s. Waiting...", describe, e.State)
	case KindJobSucceeded:
		line = fmt.Sprintf("Job %s completed successfully.", describe)
	case KindJobFailed:
		line = fmt.Sprintf("Job %s failed with status: %s.", describe, e.State)
	case KindJobCancelled:
		line = fmt.Sprintf("Job %s was cancelled.", describe)
	case KindJobStuck:
		line = fmt.Sprintf("Job %s did not finish in time, last status: %s.", describe, e.State)
	case KindJobErrored:
		line = fmt.Sprintf("Job %s could not be tracked.", describe)
	case KindTierSucceeded:
		line = fmt.Sprintf("All jobs with priority %d succeeded", e.Tier)
	case KindTierFailed:
		line = fmt.Sprintf("One or more jobs with priority %d failed. Exiting...", e.Tier)
	case KindRunComplete:
		line = "All jobs completed."
	default:
		line = string(e.Kind)
	}
	if e.Message != "" {
		line += " " + e.Message
	}
	if e.Err != "" {
		line += " Error: " + e.Err
	}
	return line
}
