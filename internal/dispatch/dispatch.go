package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/glue-runner/internal/eventlog"
	"github.com/kingrea/glue-runner/internal/execution"
	"github.com/kingrea/glue-runner/internal/job"
	"github.com/kingrea/glue-runner/internal/monitor"
)

// Dispatcher runs jobs tier by tier. Jobs sharing a tier run concurrently;
// a tier starts only after every job of the previous tier succeeded.
type Dispatcher struct {
	client          execution.Client
	sink            eventlog.Sink
	maxParallel     int
	cancelOnFailure bool
	monitorOpts     []monitor.Option
	clock           func() time.Time
	newRunID        func() string
}

// Option customizes the dispatcher.
type Option func(*Dispatcher)

// WithSink sets where lifecycle events go.
func WithSink(sink eventlog.Sink) Option {
	return func(d *Dispatcher) {
		if sink != nil {
			d.sink = sink
		}
	}
}

// WithMaxParallel caps how many jobs of one tier run at once. Values <= 0 run
// the whole tier at once.
func WithMaxParallel(n int) Option {
	return func(d *Dispatcher) {
		d.maxParallel = n
	}
}

// WithCancelOnFailure makes the first failing job cancel its running siblings.
func WithCancelOnFailure(enabled bool) Option {
	return func(d *Dispatcher) {
		d.cancelOnFailure = enabled
	}
}

// WithMonitorOptions forwards options to every job monitor.
func WithMonitorOptions(opts ...monitor.Option) Option {
	return func(d *Dispatcher) {
		d.monitorOpts = append(d.monitorOpts, opts...)
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithRunIDGenerator replaces the uuid run id source.
func WithRunIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newRunID = fn
		}
	}
}

// New wires a dispatcher to an execution client.
func New(client execution.Client, opts ...Option) (*Dispatcher, error) {
	if client == nil {
		return nil, execution.ErrNoClient
	}
	d := &Dispatcher{
		client:   client,
		sink:     eventlog.Discard,
		clock:    time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch runs every entry and returns once the run is over.
//
// A tier whose jobs did not all succeed stops the run: later tiers are never
// submitted, and the returned Summary has OK false with a nil error. A
// submission or poll fault aborts the whole run: siblings in the tier are
// cancelled and awaited, later tiers are skipped, and the fault is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, entries []job.Entry, defaults job.Defaults) (Summary, error) {
	if err := Validate(entries); err != nil {
		return Summary{}, err
	}
	runID := d.newRunID()
	summary := Summary{RunID: runID, StartedAt: d.clock()}
	tiers := GroupTiers(entries, defaults)

	opts := append([]monitor.Option{}, d.monitorOpts...)
	opts = append(opts, monitor.WithSink(d.sink), monitor.WithRunID(runID), monitor.WithClock(d.clock))
	mon, err := monitor.New(d.client, opts...)
	if err != nil {
		return Summary{}, err
	}

	if len(tiers) > 0 {
		d.emit(eventlog.Event{Kind: eventlog.KindRunStarted, RunID: runID,
			Message: fmt.Sprintf("%d jobs in %d tiers.", len(entries), len(tiers))})
	}
	halted := false
	for i, tier := range tiers {
		if err := ctx.Err(); err != nil {
			summary.Err = fmt.Errorf("dispatch: interrupted before tier %d: %w", tier.Key, err)
			summary.Skipped = tierKeys(tiers[i:])
			break
		}
		result, err := d.runTier(ctx, mon, runID, tier, defaults)
		summary.Tiers = append(summary.Tiers, result)
		if err != nil || !result.OK {
			failed := eventlog.Event{Kind: eventlog.KindTierFailed, RunID: runID, Tier: tier.Key}
			switch {
			case monitor.IsFault(err):
				summary.Err = fmt.Errorf("dispatch: tier %d aborted: %w", tier.Key, err)
			case err != nil:
				summary.Err = fmt.Errorf("dispatch: tier %d interrupted: %w", tier.Key, err)
			}
			if err != nil {
				failed.Err = err.Error()
			}
			d.emit(failed)
			summary.Skipped = tierKeys(tiers[i+1:])
			halted = true
			break
		}
		d.emit(eventlog.Event{Kind: eventlog.KindTierSucceeded, RunID: runID, Tier: tier.Key})
	}
	summary.OK = !halted && summary.Err == nil
	summary.FinishedAt = d.clock()

	done := eventlog.Event{
		Kind:    eventlog.KindRunComplete,
		RunID:   runID,
		Outcome: summary.Outcome(),
		Message: summary.Line() + ".",
	}
	if summary.Err != nil {
		done.Err = summary.Err.Error()
	}
	d.emit(done)
	return summary, summary.Err
}

// runTier launches one monitor per job and waits for all of them. The
// aggregate is computed only after Wait returns.
func (d *Dispatcher) runTier(ctx context.Context, mon *monitor.Monitor, runID string, tier Tier, defaults job.Defaults) (TierResult, error) {
	specs := tier.Resolve(defaults)
	d.emit(eventlog.Event{Kind: eventlog.KindTierStarted, RunID: runID, Tier: tier.Key,
		Message: fmt.Sprintf("(%d jobs)", len(specs))})

	tierCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(tierCtx)
	if d.maxParallel > 0 {
		group.SetLimit(d.maxParallel)
	}
	results := make([]monitor.Result, len(specs))
	for i, spec := range specs {
		group.Go(func() error {
			res, err := mon.Run(groupCtx, spec)
			results[i] = res
			if err != nil {
				return err
			}
			if !res.OK() && d.cancelOnFailure {
				cancel()
			}
			return nil
		})
	}
	err := group.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	result := TierResult{Key: tier.Key, Results: results, OK: true}
	for _, res := range results {
		if !res.OK() {
			result.OK = false
		}
	}
	return result, err
}

func (d *Dispatcher) emit(evt eventlog.Event) {
	if evt.Time.IsZero() {
		evt.Time = d.clock()
	}
	d.sink.Record(evt)
}

func tierKeys(tiers []Tier) []int {
	if len(tiers) == 0 {
		return nil
	}
	keys := make([]int, 0, len(tiers))
	for _, tier := range tiers {
		keys = append(keys, tier.Key)
	}
	return keys
}
