package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kingrea/glue-runner/internal/job"
)

var (
	// ErrDuplicateJob is returned when two entries share a name.
	ErrDuplicateJob = errors.New("dispatch: duplicate job name")
	// ErrEmptyJobName is returned for entries without a name.
	ErrEmptyJobName = errors.New("dispatch: job name is required")
)

// Tier is a group of jobs sharing a priority key. Entries keep their input order.
type Tier struct {
	Key     int
	Entries []job.Entry
}

// Resolve fully resolves every job in the tier.
func (t Tier) Resolve(defaults job.Defaults) []job.Spec {
	specs := make([]job.Spec, 0, len(t.Entries))
	for _, entry := range t.Entries {
		specs = append(specs, job.Resolve(entry.Name, entry.Overrides, defaults))
	}
	return specs
}

// Validate rejects unnamed and duplicate entries.
func Validate(entries []job.Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		name := entry.Normalize().Name
		if name == "" {
			return fmt.Errorf("%w (entry %d)", ErrEmptyJobName, i)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateJob, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// GroupTiers groups entries by resolved priority and orders the tiers by
// ascending key. Only the priority field is resolved here.
func GroupTiers(entries []job.Entry, defaults job.Defaults) []Tier {
	byKey := make(map[int][]job.Entry)
	for _, entry := range entries {
		entry = entry.Normalize()
		key := job.Priority(entry.Overrides, defaults)
		byKey[key] = append(byKey[key], entry)
	}
	keys := make([]int, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	tiers := make([]Tier, 0, len(keys))
	for _, key := range keys {
		tiers = append(tiers, Tier{Key: key, Entries: byKey[key]})
	}
	return tiers
}
