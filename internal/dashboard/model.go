// Package dashboard renders a live terminal view of a dispatch run.
package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/glue-runner/internal/dispatch"
	"github.com/kingrea/glue-runner/internal/eventlog"
)

// recentLimit is how many event lines the activity box keeps.
const recentLimit = 8

// EventMsg carries one run event into the program.
type EventMsg eventlog.Event

// DoneMsg reports that the dispatch returned.
type DoneMsg struct {
	Summary dispatch.Summary
	Err     error
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	title     string
	snapshot  *eventlog.Snapshot
	spinner   spinner.Model
	recent    []string
	interrupt func()
	stopping  bool
	done      *DoneMsg
	width     int
}

// ModelOption customises the model.
type ModelOption func(*Model)

// WithInterrupt is called once when the user asks to stop the run.
func WithInterrupt(fn func()) ModelOption {
	return func(m *Model) {
		m.interrupt = fn
	}
}

// NewModel builds an empty dashboard.
func NewModel(title string, opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = labelStyleRunning
	m := Model{
		title:    title,
		snapshot: eventlog.NewSnapshot(),
		spinner:  s,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update folds messages into the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done != nil {
				return m, tea.Quit
			}
			if !m.stopping {
				m.stopping = true
				if m.interrupt != nil {
					m.interrupt()
				}
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case EventMsg:
		evt := eventlog.Event(msg)
		m.snapshot.Record(evt)
		m.recent = append(m.recent, fmt.Sprintf("%s %s", evt.Time.Format("15:04:05"), evt.Text()))
		if len(m.recent) > recentLimit {
			m.recent = m.recent[len(m.recent)-recentLimit:]
		}
		return m, nil
	case DoneMsg:
		m.done = &msg
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the board.
func (m Model) View() string {
	sections := []string{headerStyle.Render("⬡ " + strings.ToUpper(m.title)), m.renderRun(), m.renderJobs()}
	if len(m.recent) > 0 {
		sections = append(sections, m.renderRecent())
	}
	if m.done != nil {
		sections = append(sections, RenderSummary(m.done.Summary))
	} else if m.stopping {
		sections = append(sections, labelStyleStuck.Render("Stopping: waiting for running jobs to be cancelled..."))
	} else {
		sections = append(sections, detailTextStyle.Render("q: stop run"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// Snapshot exposes the folded job state.
func (m Model) Snapshot() *eventlog.Snapshot {
	return m.snapshot
}

// Result returns the dispatch outcome once DoneMsg arrived.
func (m Model) Result() (DoneMsg, bool) {
	if m.done == nil {
		return DoneMsg{}, false
	}
	return *m.done, true
}

func (m Model) renderRun() string {
	run := m.snapshot.Run()
	parts := []string{fmt.Sprintf("phase %s", run.Phase)}
	if run.RunID != "" {
		parts = append(parts, "run "+run.RunID)
	}
	if run.CurrentTier != nil {
		parts = append(parts, fmt.Sprintf("tier %d", *run.CurrentTier))
	}
	return detailTextStyle.Render(strings.Join(parts, " · "))
}

func (m Model) renderJobs() string {
	jobs := m.snapshot.Jobs()
	if len(jobs) == 0 {
		return detailTextStyle.Render("Waiting for jobs...")
	}
	byTier := make(map[int][]eventlog.JobStatus)
	for _, status := range jobs {
		byTier[status.Tier] = append(byTier[status.Tier], status)
	}
	tiers := make([]int, 0, len(byTier))
	for tier := range byTier {
		tiers = append(tiers, tier)
	}
	sort.Ints(tiers)
	var lines []string
	for _, tier := range tiers {
		lines = append(lines, tierStyle.Render(fmt.Sprintf("Tier %d", tier)))
		for _, status := range byTier[tier] {
			lines = append(lines, "  "+m.renderJob(status))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderJob(status eventlog.JobStatus) string {
	var label string
	if status.Done() {
		label = outcomeStyle(status.Outcome).Render(string(status.Outcome))
	} else {
		state := string(status.State)
		if state == "" {
			state = "submitted"
		}
		label = m.spinner.View() + " " + labelStyleRunning.Render(state)
	}
	detail := fmt.Sprintf("%s x%d  polls %d", status.WorkerType, status.NumberOfWorkers, status.Polls)
	if status.Error != "" {
		detail += "  " + status.Error
	}
	return fmt.Sprintf("%s %s %s", labelStyleDefault.Render(status.Job), label, detailTextStyle.Render(detail))
}

func (m Model) renderRecent() string {
	head := tierStyle.Render("ACTIVITY")
	body := detailTextStyle.Render(strings.Join(m.recent, "\n"))
	style := boxStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(head + "\n" + body)
}
