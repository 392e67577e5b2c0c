// Package nop provides a dry-run execution client.
package nop

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/xid"

	"github.com/kingrea/glue-runner/internal/execution"
	"github.com/kingrea/glue-runner/internal/job"
)

// Client accepts every submission and reports every run as succeeded on the
// first poll. It lets a configuration be exercised end to end without
// touching the execution service.
type Client struct {
	mu   sync.Mutex
	runs map[execution.RunHandle]job.Spec
}

// New creates a dry-run client.
func New() *Client {
	return &Client{runs: make(map[execution.RunHandle]job.Spec)}
}

// Start records the spec and returns a fresh handle.
func (c *Client) Start(_ context.Context, spec job.Spec) (execution.RunHandle, error) {
	handle := execution.RunHandle("dry_" + xid.New().String())
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[handle] = spec
	return handle, nil
}

// Poll returns StateSucceeded for handles issued by Start.
func (c *Client) Poll(_ context.Context, handle execution.RunHandle) (job.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.runs[handle]; !ok {
		return "", fmt.Errorf("nop: unknown run handle %q", handle)
	}
	return job.StateSucceeded, nil
}

// Submitted returns how many runs were started.
func (c *Client) Submitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.runs)
}
