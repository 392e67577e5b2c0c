package dashboard

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/glue-runner/internal/dispatch"
	"github.com/kingrea/glue-runner/internal/eventlog"
)

// ProgramSink forwards events into a running bubbletea program.
type ProgramSink struct {
	Program *tea.Program
}

// Record implements eventlog.Sink. It is a no-op once the program exited.
func (s ProgramSink) Record(e eventlog.Event) {
	if s.Program != nil {
		s.Program.Send(EventMsg(e))
	}
}

// Work is the dispatch the dashboard watches. The sink feeds the board.
type Work func(ctx context.Context, sink eventlog.Sink) (dispatch.Summary, error)

// Run shows the dashboard while work runs and returns work's result. Pressing
// q or ctrl+c cancels ctx for work; the board stays up until work returns.
func Run(ctx context.Context, title string, work Work, opts ...tea.ProgramOption) (dispatch.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewModel(title, WithInterrupt(cancel)), opts...)
	var (
		summary dispatch.Summary
		workErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		summary, workErr = work(ctx, ProgramSink{Program: program})
		program.Send(DoneMsg{Summary: summary, Err: workErr})
	}()

	final, err := program.Run()
	if err != nil {
		cancel()
		<-finished
		return summary, fmt.Errorf("dashboard: %w", err)
	}
	<-finished
	if m, ok := final.(Model); ok {
		if res, ok := m.Result(); ok {
			return res.Summary, res.Err
		}
	}
	return summary, workErr
}
