package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/glue-runner/internal/job"
)

var (
	labelStyleSucceeded = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleRunning   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleStuck     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	labelStyleSkipped   = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	labelStyleDefault   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	detailTextStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	headerStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	tierStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	boxStyle            = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#444444")).
				Padding(0, 1)
)

// outcomeStyle picks the label colour for a finished job.
func outcomeStyle(outcome job.Outcome) lipgloss.Style {
	switch outcome {
	case job.OutcomeSucceeded:
		return labelStyleSucceeded
	case job.OutcomeFailed, job.OutcomeTimedOut, job.OutcomeErrored:
		return labelStyleFailed
	case job.OutcomeStuck:
		return labelStyleStuck
	case job.OutcomeCancelled:
		return labelStyleSkipped
	default:
		return labelStyleDefault
	}
}
