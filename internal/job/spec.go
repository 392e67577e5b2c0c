package job

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	// FallbackWorkerType is used when neither the job nor the run defaults name a worker type.
	FallbackWorkerType = "Standard"
	// FallbackNumberOfWorkers is used when no worker count is configured.
	FallbackNumberOfWorkers = 2
	// MaxNumberOfWorkers is the largest worker count the service API can carry.
	MaxNumberOfWorkers = math.MaxInt32
	// FallbackFromDate and FallbackToDate form an invalid range on purpose so the
	// execution service rejects jobs whose dates were never supplied.
	FallbackFromDate = "9999-69-96"
	FallbackToDate   = "9999-96-69"
	// FallbackPriority is the tier jobs land in when no priority is configured.
	FallbackPriority = 0

	// FromDateArgument and ToDateArgument carry the resolved date range to the job.
	FromDateArgument = "--from-date"
	ToDateArgument   = "--to-date"
)

// Spec is a fully resolved job ready for submission. It is built once per job
// at dispatch time and must not be modified afterwards.
type Spec struct {
	Name            string
	Priority        int
	WorkerType      string
	NumberOfWorkers int
	FromDate        string
	ToDate          string
	// Arguments always contains the resolved date range under
	// FromDateArgument and ToDateArgument.
	Arguments map[string]string
}

// DateRange renders the inclusive range as from..to.
func (s Spec) DateRange() string {
	return fmt.Sprintf("%s..%s", s.FromDate, s.ToDate)
}

// String summarises the spec the way it is shown in log lines.
func (s Spec) String() string {
	return fmt.Sprintf("%s (priority %d, worker type %s, workers %d, from-date %s, to-date %s)",
		s.Name, s.Priority, s.WorkerType, s.NumberOfWorkers, s.FromDate, s.ToDate)
}

// SortedArgumentKeys returns the argument names in stable order.
func (s Spec) SortedArgumentKeys() []string {
	keys := make([]string, 0, len(s.Arguments))
	for key := range s.Arguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Overrides holds the optional per-job fields read from configuration. A nil
// field means "not set" and falls through to Defaults.
type Overrides struct {
	Priority        *int              `yaml:"priority,omitempty"`
	WorkerType      *string           `yaml:"worker_type,omitempty"`
	NumberOfWorkers *int              `yaml:"number_of_workers,omitempty"`
	FromDate        *string           `yaml:"from_date,omitempty"`
	ToDate          *string           `yaml:"to_date,omitempty"`
	Arguments       map[string]string `yaml:"arguments,omitempty"`
}

// Defaults is the run-wide fallback set. It has the same shape as Overrides
// and applies to every tier.
type Defaults = Overrides

// Entry pairs a job name with its overrides, preserving configuration order.
type Entry struct {
	Name      string
	Overrides Overrides
}

// Normalize trims the entry name.
func (e Entry) Normalize() Entry {
	e.Name = strings.TrimSpace(e.Name)
	return e
}
