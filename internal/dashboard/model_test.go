package dashboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/glue-runner/internal/dispatch"
	"github.com/kingrea/glue-runner/internal/eventlog"
	"github.com/kingrea/glue-runner/internal/execution"
	"github.com/kingrea/glue-runner/internal/job"
	"github.com/kingrea/glue-runner/internal/monitor"
)

func jobEvent(kind eventlog.Kind, name string, tier int) EventMsg {
	evt := eventlog.ForJob(kind, job.Spec{Name: name, Priority: tier, WorkerType: "G.1X", NumberOfWorkers: 2})
	evt.Time = time.Unix(1730000000, 0)
	evt.RunID = "run-1"
	return EventMsg(evt)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model, cmd
}

func TestModelTracksJobEvents(t *testing.T) {
	m := NewModel("glue runner")
	m, _ = update(t, m, EventMsg(eventlog.Event{RunID: "run-1", Kind: eventlog.KindRunStarted}))
	m, _ = update(t, m, jobEvent(eventlog.KindJobSubmitted, "ingest", 0))
	progress := jobEvent(eventlog.KindJobProgress, "ingest", 0)
	progress.State = job.StateRunning
	m, _ = update(t, m, progress)
	failed := jobEvent(eventlog.KindJobFailed, "export", 1)
	failed.Outcome = job.OutcomeFailed
	failed.State = job.StateFailed
	m, _ = update(t, m, failed)

	status, ok := m.Snapshot().Job("ingest")
	if !ok || status.State != job.StateRunning || status.Polls != 1 {
		t.Fatalf("unexpected ingest status %+v", status)
	}
	view := m.View()
	for _, want := range []string{"ingest", "export", "Tier 0", "Tier 1", "running", "failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestModelKeepsRecentEventsBounded(t *testing.T) {
	m := NewModel("runner")
	for i := 0; i < recentLimit+5; i++ {
		m, _ = update(t, m, jobEvent(eventlog.KindJobProgress, "ingest", 0))
	}
	if len(m.recent) != recentLimit {
		t.Fatalf("expected %d recent lines, got %d", recentLimit, len(m.recent))
	}
}

func TestModelInterruptThenDone(t *testing.T) {
	interrupted := 0
	m := NewModel("runner", WithInterrupt(func() { interrupted++ }))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd != nil {
		t.Fatalf("the board must stay up until the dispatch returns")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if interrupted != 1 {
		t.Fatalf("expected a single interrupt, got %d", interrupted)
	}
	if !strings.Contains(m.View(), "Stopping") {
		t.Fatalf("expected stopping notice")
	}
	m, cmd = update(t, m, DoneMsg{Summary: dispatch.Summary{OK: true}})
	if cmd == nil {
		t.Fatalf("expected quit command after DoneMsg")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	res, ok := m.Result()
	if !ok || !res.Summary.OK {
		t.Fatalf("expected recorded result, got %+v", res)
	}
}

func TestRenderSummary(t *testing.T) {
	start := time.Unix(1730000000, 0)
	summary := dispatch.Summary{
		Tiers: []dispatch.TierResult{{
			Key: 0,
			Results: []monitor.Result{
				{Spec: job.Spec{Name: "ingest"}, Outcome: job.OutcomeSucceeded, Polls: 3, Handle: "jr_1", StartedAt: start, FinishedAt: start.Add(90 * time.Second)},
				{Spec: job.Spec{Name: "export"}, Outcome: job.OutcomeErrored, Err: &execution.SubmissionError{Job: "export", Err: errors.New("denied")}},
			},
		}},
		Skipped: []int{3},
		Err:     errors.New("dispatch: tier 0 aborted"),
	}
	out := RenderSummary(summary)
	for _, want := range []string{"ingest", "jr_1", "1m30s", "export", "denied", "Tier 3 skipped", "ERRORED"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected summary to contain %q:\n%s", want, out)
		}
	}
}

func TestRenderPlan(t *testing.T) {
	priority := 2
	tiers := dispatch.GroupTiers([]job.Entry{
		{Name: "ingest"},
		{Name: "report", Overrides: job.Overrides{Priority: &priority}},
	}, job.Defaults{})
	out := RenderPlan(tiers, job.Defaults{})
	for _, want := range []string{"Tier 0", "Tier 2", "ingest", "report", job.FallbackWorkerType, "--from-date"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected plan to contain %q:\n%s", want, out)
		}
	}
	if !strings.Contains(RenderPlan(nil, job.Defaults{}), "No jobs") {
		t.Fatalf("expected empty plan notice")
	}
}
