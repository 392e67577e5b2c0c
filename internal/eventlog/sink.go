// Package eventlog records runner lifecycle events and fans them out to the
// console, a logbook file, the status snapshot and the dashboard.
package eventlog

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ConsoleTimeFormat is the timestamp layout used for console lines.
const ConsoleTimeFormat = "2006-01-02 15:04:05"

// Sink consumes events. Sinks are called from many monitor goroutines at once
// and must synchronise internally.
type Sink interface {
	Record(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Record calls f.
func (f SinkFunc) Record(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Fanout forwards each event to every sink in order.
type Fanout []Sink

// Record implements Sink.
func (f Fanout) Record(e Event) {
	for _, sink := range f {
		if sink != nil {
			sink.Record(e)
		}
	}
}

// Console writes one timestamped line per event.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole writes to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Record implements Sink.
func (c *Console) Record(e Event) {
	if c == nil || c.w == nil {
		return
	}
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.Kind == KindTierStarted {
		fmt.Fprintln(c.w)
	}
	fmt.Fprintf(c.w, "[%s] %s\n", ts.Format(ConsoleTimeFormat), e.Text())
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Record implements Sink.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds recorded for job, or for run/tier events when job is empty.
func (r *Recorder) Kinds(job string) []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []Kind
	for _, e := range r.events {
		if e.Job == job {
			kinds = append(kinds, e.Kind)
		}
	}
	return kinds
}
