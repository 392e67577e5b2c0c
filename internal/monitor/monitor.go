// Package monitor drives a single job from submission to a terminal state by
// polling the execution service. One monitor run is the unit of concurrency
// inside a tier.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/kingrea/glue-runner/internal/eventlog"
	"github.com/kingrea/glue-runner/internal/execution"
	"github.com/kingrea/glue-runner/internal/job"
)

// stopTimeout bounds the best-effort stop request sent after cancellation.
const stopTimeout = 30 * time.Second

// Result describes how one job ended.
type Result struct {
	Spec       job.Spec
	Handle     execution.RunHandle
	Outcome    job.Outcome
	State      job.State
	Polls      int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether the job succeeded.
func (r Result) OK() bool {
	return r.Outcome.OK()
}

// Monitor submits jobs and polls them until they finish. A Monitor holds no
// per-job state and may run many jobs concurrently.
type Monitor struct {
	client execution.Client
	sink   eventlog.Sink
	policy Policy
	runID  string
	clock  func() time.Time
	sleep  func(context.Context, time.Duration) error
	random func() float64
}

// Option customizes the monitor.
type Option func(*Monitor)

// WithSink sets where lifecycle events go.
func WithSink(sink eventlog.Sink) Option {
	return func(m *Monitor) {
		if sink != nil {
			m.sink = sink
		}
	}
}

// WithPolicy sets poll pacing.
func WithPolicy(p Policy) Option {
	return func(m *Monitor) {
		m.policy = p
	}
}

// WithRunID stamps every event with the dispatch run id.
func WithRunID(id string) Option {
	return func(m *Monitor) {
		m.runID = id
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithSleep replaces the poll pause (primarily for tests).
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(m *Monitor) {
		if fn != nil {
			m.sleep = fn
		}
	}
}

// WithRandom replaces the jitter source.
func WithRandom(fn func() float64) Option {
	return func(m *Monitor) {
		if fn != nil {
			m.random = fn
		}
	}
}

// New wires a monitor to an execution client.
func New(client execution.Client, opts ...Option) (*Monitor, error) {
	if client == nil {
		return nil, execution.ErrNoClient
	}
	m := &Monitor{
		client: client,
		sink:   eventlog.Discard,
		policy: DefaultPolicy(),
		clock:  time.Now,
		sleep:  sleep,
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.policy = m.policy.normalized()
	return m, nil
}

// Run submits spec and polls until the service reports a terminal state.
//
// Submission and poll failures are not retried: they end the job with
// OutcomeErrored and are returned as *execution.SubmissionError or
// *execution.PollError. A terminal failure state is a normal result with a
// nil error. When ctx is cancelled the run is stopped if the client supports
// it and the job ends with OutcomeCancelled and a nil error.
func (m *Monitor) Run(ctx context.Context, spec job.Spec) (Result, error) {
	res := Result{Spec: spec, StartedAt: m.clock()}
	if ctx.Err() != nil {
		return m.cancelled(ctx, res, "not submitted"), nil
	}
	handle, err := m.client.Start(ctx, spec)
	if err != nil {
		if ctx.Err() != nil {
			return m.cancelled(ctx, res, "submission interrupted"), nil
		}
		subErr := &execution.SubmissionError{Job: spec.Name, Err: err}
		return m.errored(res, subErr), subErr
	}
	res.Handle = handle
	submitted := m.event(eventlog.KindJobSubmitted, spec)
	submitted.Handle = string(handle)
	m.sink.Record(submitted)

	interval := m.policy.Interval
	for {
		state, err := m.client.Poll(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				return m.cancelled(ctx, res, ""), nil
			}
			pollErr := &execution.PollError{Job: spec.Name, Handle: handle, Err: err}
			return m.errored(res, pollErr), pollErr
		}
		res.Polls++
		res.State = state
		if state.Terminal() {
			return m.finished(res), nil
		}
		pause := m.policy.spread(interval, m.random())
		progress := m.event(eventlog.KindJobProgress, spec)
		progress.Handle = string(handle)
		progress.State = state
		progress.Message = fmt.Sprintf("Next check in %s.", pause.Round(time.Millisecond))
		m.sink.Record(progress)

		if m.policy.MaxWait > 0 && m.clock().Sub(res.StartedAt) >= m.policy.MaxWait {
			return m.stuck(ctx, res), nil
		}
		if err := m.sleep(ctx, pause); err != nil {
			return m.cancelled(ctx, res, ""), nil
		}
		interval = m.policy.next(interval)
	}
}

func (m *Monitor) finished(res Result) Result {
	res.Outcome = job.OutcomeFor(res.State)
	res.FinishedAt = m.clock()
	kind := eventlog.KindJobFailed
	if res.OK() {
		kind = eventlog.KindJobSucceeded
	}
	evt := m.event(kind, res.Spec)
	evt.Handle = string(res.Handle)
	evt.State = res.State
	evt.Outcome = res.Outcome
	m.sink.Record(evt)
	return res
}

func (m *Monitor) errored(res Result, err error) Result {
	res.Outcome = job.OutcomeErrored
	res.Err = err
	res.FinishedAt = m.clock()
	evt := m.event(eventlog.KindJobErrored, res.Spec)
	evt.Handle = string(res.Handle)
	evt.Outcome = res.Outcome
	evt.Err = err.Error()
	m.sink.Record(evt)
	return res
}

func (m *Monitor) stuck(ctx context.Context, res Result) Result {
	res.Outcome = job.OutcomeStuck
	res.FinishedAt = m.clock()
	evt := m.event(eventlog.KindJobStuck, res.Spec)
	evt.Handle = string(res.Handle)
	evt.State = res.State
	evt.Outcome = res.Outcome
	evt.Message = fmt.Sprintf("Gave up after %s.", m.policy.MaxWait)
	if err := m.stop(ctx, res.Handle); err != nil {
		evt.Err = err.Error()
	}
	m.sink.Record(evt)
	return res
}

func (m *Monitor) cancelled(ctx context.Context, res Result, note string) Result {
	res.Outcome = job.OutcomeCancelled
	res.FinishedAt = m.clock()
	evt := m.event(eventlog.KindJobCancelled, res.Spec)
	evt.Handle = string(res.Handle)
	evt.State = res.State
	evt.Outcome = res.Outcome
	if note != "" {
		evt.Message = note + "."
	}
	if res.Handle != "" {
		if err := m.stop(ctx, res.Handle); err != nil {
			evt.Err = err.Error()
		}
	}
	m.sink.Record(evt)
	return res
}

// stop asks the service to stop a run the monitor is abandoning. It runs on a
// context detached from ctx's cancellation.
func (m *Monitor) stop(ctx context.Context, handle execution.RunHandle) error {
	stopper, ok := m.client.(execution.Stopper)
	if !ok || handle == "" {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := stopper.Stop(stopCtx, handle); err != nil {
		return fmt.Errorf("stop run %s: %w", handle, err)
	}
	return nil
}

func (m *Monitor) event(kind eventlog.Kind, spec job.Spec) eventlog.Event {
	evt := eventlog.ForJob(kind, spec)
	evt.Time = m.clock()
	evt.RunID = m.runID
	return evt
}

// IsFault reports whether err came from submission or polling rather than
// from the job itself.
func IsFault(err error) bool {
	var subErr *execution.SubmissionError
	var pollErr *execution.PollError
	return errors.As(err, &subErr) || errors.As(err, &pollErr)
}
