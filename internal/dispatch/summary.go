package dispatch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kingrea/glue-runner/internal/job"
	"github.com/kingrea/glue-runner/internal/monitor"
)

// TierResult aggregates the monitors of one tier. It is only built after
// every monitor in the tier has returned.
type TierResult struct {
	Key     int
	Results []monitor.Result
	// OK is the logical AND of every job's success.
	OK bool
}

// Failed lists the jobs of the tier that did not succeed.
func (t TierResult) Failed() []monitor.Result {
	var failed []monitor.Result
	for _, res := range t.Results {
		if !res.OK() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Summary describes a whole dispatch.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Tiers      []TierResult
	// Skipped lists the tier keys that were never started.
	Skipped []int
	// Err is the fault that aborted the run, if any.
	Err error
	OK  bool
}

// Counts tallies job outcomes across every tier that ran.
func (s Summary) Counts() map[job.Outcome]int {
	counts := make(map[job.Outcome]int)
	for _, tier := range s.Tiers {
		for _, res := range tier.Results {
			counts[res.Outcome]++
		}
	}
	return counts
}

// Results flattens the per-job results in tier order.
func (s Summary) Results() []monitor.Result {
	var out []monitor.Result
	for _, tier := range s.Tiers {
		out = append(out, tier.Results...)
	}
	return out
}

// Outcome is the run-level outcome used in the terminal event.
func (s Summary) Outcome() job.Outcome {
	if s.OK {
		return job.OutcomeSucceeded
	}
	if s.Err != nil {
		return job.OutcomeErrored
	}
	return job.OutcomeFailed
}

// Line renders the counts as a short sentence.
func (s Summary) Line() string {
	counts := s.Counts()
	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, string(outcome))
	}
	sort.Strings(outcomes)
	parts := make([]string, 0, len(outcomes)+2)
	for _, outcome := range outcomes {
		parts = append(parts, fmt.Sprintf("%d %s", counts[job.Outcome(outcome)], outcome))
	}
	if len(parts) == 0 {
		parts = append(parts, "no jobs")
	}
	parts = append(parts, fmt.Sprintf("%d tiers run", len(s.Tiers)))
	if len(s.Skipped) > 0 {
		parts = append(parts, fmt.Sprintf("%d tiers skipped", len(s.Skipped)))
	}
	return strings.Join(parts, ", ")
}
