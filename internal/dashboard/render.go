package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/glue-runner/internal/dispatch"
	"github.com/kingrea/glue-runner/internal/job"
)

// RenderPlan shows which jobs would run in which tier and with what settings.
func RenderPlan(tiers []dispatch.Tier, defaults job.Defaults) string {
	if len(tiers) == 0 {
		return detailTextStyle.Render("No jobs configured.")
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("PLAN"))
	b.WriteString("\n")
	for i, tier := range tiers {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(tierStyle.Render(fmt.Sprintf("Tier %d", tier.Key)))
		b.WriteString(detailTextStyle.Render(fmt.Sprintf("  (%d jobs, concurrent)", len(tier.Entries))))
		b.WriteString("\n")
		for _, spec := range tier.Resolve(defaults) {
			b.WriteString(fmt.Sprintf("  %s %s\n", labelStyleDefault.Render(spec.Name),
				detailTextStyle.Render(fmt.Sprintf("%s x%d  %s", spec.WorkerType, spec.NumberOfWorkers, spec.DateRange()))))
			for _, key := range spec.SortedArgumentKeys() {
				b.WriteString(detailTextStyle.Render(fmt.Sprintf("      %s=%s", key, spec.Arguments[key])))
				b.WriteString("\n")
			}
		}
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderSummary renders the final per-job table of a run.
func RenderSummary(summary dispatch.Summary) string {
	var rows []string
	nameWidth := 4
	for _, res := range summary.Results() {
		if w := lipgloss.Width(res.Spec.Name); w > nameWidth {
			nameWidth = w
		}
	}
	for _, tier := range summary.Tiers {
		rows = append(rows, tierStyle.Render(fmt.Sprintf("Tier %d", tier.Key)))
		for _, res := range tier.Results {
			label := outcomeStyle(res.Outcome).Render(fmt.Sprintf("%-9s", res.Outcome))
			detail := fmt.Sprintf("polls %d", res.Polls)
			if !res.StartedAt.IsZero() && !res.FinishedAt.IsZero() {
				detail += "  " + res.FinishedAt.Sub(res.StartedAt).Round(time.Second).String()
			}
			if res.Handle != "" {
				detail += "  " + string(res.Handle)
			}
			if res.Err != nil {
				detail += "  " + res.Err.Error()
			}
			rows = append(rows, fmt.Sprintf("  %s %-*s %s", label, nameWidth, res.Spec.Name, detailTextStyle.Render(detail)))
		}
	}
	for _, key := range summary.Skipped {
		rows = append(rows, labelStyleSkipped.Render(fmt.Sprintf("Tier %d skipped", key)))
	}
	if len(rows) == 0 {
		rows = append(rows, detailTextStyle.Render("No jobs ran."))
	}
	status := outcomeStyle(summary.Outcome()).Render(strings.ToUpper(string(summary.Outcome())))
	footer := fmt.Sprintf("%s  %s", status, detailTextStyle.Render(summary.Line()))
	if summary.Err != nil {
		footer += "\n" + labelStyleFailed.Render(summary.Err.Error())
	}
	body := lipgloss.JoinVertical(lipgloss.Left, strings.Join(rows, "\n"), "", footer)
	return boxStyle.Render(body)
}
