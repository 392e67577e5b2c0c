package eventlog

import (
	"sort"
	"sync"
	"time"

	"github.com/kingrea/glue-runner/internal/job"
)

// RunPhase is the coarse state of the whole run.
type RunPhase string

const (
	PhasePending   RunPhase = "pending"
	PhaseRunning   RunPhase = "running"
	PhaseSucceeded RunPhase = "succeeded"
	PhaseFailed    RunPhase = "failed"
)

// JobStatus is the latest known state of one job.
type JobStatus struct {
	Job             string      `json:"job"`
	Tier            int         `json:"tier"`
	WorkerType      string      `json:"worker_type"`
	NumberOfWorkers int         `json:"number_of_workers"`
	FromDate        string      `json:"from_date"`
	ToDate          string      `json:"to_date"`
	Handle          string      `json:"handle,omitempty"`
	State           job.State   `json:"state,omitempty"`
	Outcome         job.Outcome `json:"outcome,omitempty"`
	Polls           int         `json:"polls"`
	Error           string      `json:"error,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Done reports whether the job has an outcome.
func (s JobStatus) Done() bool {
	return s.Outcome != ""
}

// RunStatus summarises the run as seen by the snapshot.
type RunStatus struct {
	RunID       string    `json:"run_id"`
	Phase       RunPhase  `json:"phase"`
	CurrentTier *int      `json:"current_tier,omitempty"`
	FailedTier  *int      `json:"failed_tier,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Snapshot folds events into the latest per-job state. It backs the status
// server and the dashboard.
type Snapshot struct {
	mu   sync.RWMutex
	run  RunStatus
	jobs map[string]*JobStatus
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		run:  RunStatus{Phase: PhasePending},
		jobs: make(map[string]*JobStatus),
	}
}

// Record implements Sink.
func (s *Snapshot) Record(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.RunID != "" {
		s.run.RunID = e.RunID
	}
	s.run.UpdatedAt = e.Time
	switch e.Kind {
	case KindRunStarted:
		s.run.Phase = PhaseRunning
		s.run.StartedAt = e.Time
		return
	case KindTierStarted:
		tier := e.Tier
		s.run.CurrentTier = &tier
		return
	case KindTierFailed:
		tier := e.Tier
		s.run.FailedTier = &tier
		return
	case KindTierSucceeded:
		return
	case KindRunComplete:
		if e.Outcome.OK() {
			s.run.Phase = PhaseSucceeded
		} else {
			s.run.Phase = PhaseFailed
		}
		return
	}
	if e.Job == "" {
		return
	}
	status, ok := s.jobs[e.Job]
	if !ok {
		status = &JobStatus{Job: e.Job}
		s.jobs[e.Job] = status
	}
	status.Tier = e.Tier
	status.WorkerType = e.WorkerType
	status.NumberOfWorkers = e.NumberOfWorkers
	status.FromDate = e.FromDate
	status.ToDate = e.ToDate
	status.UpdatedAt = e.Time
	if e.Handle != "" {
		status.Handle = e.Handle
	}
	if e.State != "" {
		status.State = e.State
	}
	switch e.Kind {
	case KindJobProgress, KindJobSucceeded, KindJobFailed:
		status.Polls++
	}
	if e.Outcome != "" {
		status.Outcome = e.Outcome
	}
	if e.Err != "" {
		status.Error = e.Err
	}
}

// Run returns the run-level status.
func (s *Snapshot) Run() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run
}

// Jobs returns every known job ordered by tier, then name.
func (s *Snapshot) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, status := range s.jobs {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Job < out[j].Job
	})
	return out
}

// Job returns the status of one job.
func (s *Snapshot) Job(name string) (JobStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.jobs[name]
	if !ok {
		return JobStatus{}, false
	}
	return *status, true
}
