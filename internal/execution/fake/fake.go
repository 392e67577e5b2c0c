// Package fake provides a scripted execution client that records every call.
// Tests use it to drive monitors and the dispatcher deterministically.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/kingrea/glue-runner/internal/execution"
	"github.com/kingrea/glue-runner/internal/job"
)

// CallKind names a client operation.
type CallKind string

const (
	CallStart CallKind = "start"
	CallPoll  CallKind = "poll"
	CallStop  CallKind = "stop"
)

// Call is one recorded client invocation, in global order.
type Call struct {
	Seq   int
	Kind  CallKind
	Job   string
	State job.State
}

// Script controls how the client answers for one job.
type Script struct {
	// States are returned by successive polls. The last entry repeats once the
	// list is exhausted; an empty list means StateSucceeded.
	States []job.State
	// StartErr makes Start fail.
	StartErr error
	// PollErr makes the poll numbered PollErrAt (1-based) fail.
	PollErr   error
	PollErrAt int
}

// Client is a concurrency-safe scripted execution client.
type Client struct {
	mu      sync.Mutex
	scripts map[string]Script
	handles map[execution.RunHandle]string
	polls   map[string]int
	calls   []Call
	nextID  int

	startBarrier int
	barrierOpen  chan struct{}
	starts       int
}

// Option customises the client.
type Option func(*Client)

// WithStartBarrier blocks every Poll until n Start calls have been recorded.
// A dispatcher that runs jobs one after another never opens the barrier.
func WithStartBarrier(n int) Option {
	return func(c *Client) {
		c.startBarrier = n
	}
}

// New builds a client from per-job scripts. Jobs without a script succeed on
// their first poll.
func New(scripts map[string]Script, opts ...Option) *Client {
	c := &Client{
		scripts:     make(map[string]Script, len(scripts)),
		handles:     make(map[execution.RunHandle]string),
		polls:       make(map[string]int),
		barrierOpen: make(chan struct{}),
	}
	for name, script := range scripts {
		c.scripts[name] = script
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.startBarrier <= 0 {
		close(c.barrierOpen)
	}
	return c
}

// Start records the submission and returns a handle unique to this call.
func (c *Client) Start(_ context.Context, spec job.Spec) (execution.RunHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(CallStart, spec.Name, "")
	script := c.scripts[spec.Name]
	if script.StartErr != nil {
		return "", script.StartErr
	}
	c.nextID++
	handle := execution.RunHandle(fmt.Sprintf("%s#%d", spec.Name, c.nextID))
	c.handles[handle] = spec.Name
	c.starts++
	if c.startBarrier > 0 && c.starts == c.startBarrier {
		close(c.barrierOpen)
	}
	return handle, nil
}

// Poll answers from the job's script.
func (c *Client) Poll(ctx context.Context, handle execution.RunHandle) (job.State, error) {
	select {
	case <-c.barrierOpen:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.handles[handle]
	if !ok {
		return "", fmt.Errorf("fake: unknown run handle %q", handle)
	}
	c.polls[name]++
	n := c.polls[name]
	script := c.scripts[name]
	if script.PollErr != nil && n == script.PollErrAt {
		c.record(CallPoll, name, "")
		return "", script.PollErr
	}
	state := job.StateSucceeded
	if len(script.States) > 0 {
		idx := n - 1
		if idx >= len(script.States) {
			idx = len(script.States) - 1
		}
		state = script.States[idx]
	}
	c.record(CallPoll, name, state)
	return state, nil
}

// Stop records the request.
func (c *Client) Stop(_ context.Context, handle execution.RunHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.handles[handle]
	if !ok {
		return fmt.Errorf("fake: unknown run handle %q", handle)
	}
	c.record(CallStop, name, "")
	return nil
}

func (c *Client) record(kind CallKind, name string, state job.State) {
	c.calls = append(c.calls, Call{Seq: len(c.calls), Kind: kind, Job: name, State: state})
}

// Calls returns a copy of every recorded call in order.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Count returns how many calls of kind were recorded for name. An empty name
// counts across all jobs.
func (c *Client) Count(kind CallKind, name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, call := range c.calls {
		if call.Kind != kind {
			continue
		}
		if name != "" && call.Job != name {
			continue
		}
		total++
	}
	return total
}
