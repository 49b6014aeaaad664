package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"grimm.is/vecmatrix/internal/history"
	"grimm.is/vecmatrix/internal/report"
)

// RenderSummary draws the end-of-run card: counts, where to look, elapsed.
func RenderSummary(s report.Summary) string {
	countStyle := func(n int, bad lipgloss.Style) string {
		if n == 0 {
			return StylePass.Render("0")
		}
		return bad.Render(fmt.Sprint(n))
	}

	lines := []string{
		StyleTitle.Render("Matrix run complete"),
		StyleSubtitle.Render(fmt.Sprintf("%s on %s", s.RunID, s.Host)),
		"",
		fmt.Sprintf("Jobs:     %d (%s failed) on %d workers", s.Jobs, countStyle(s.FailedJobs, StyleFail), s.Workers),
		fmt.Sprintf("Errors:   %s  see %s", countStyle(s.Errors, StyleFail), s.ErrorsLog),
		fmt.Sprintf("Warnings: %s  see %s", countStyle(s.Warnings, StyleWarn), s.WarningsLog),
		fmt.Sprintf("Elapsed:  %s", s.Elapsed),
	}
	return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderHistory draws recent runs as a table, newest first.
func RenderHistory(runs []history.Run, now time.Time) string {
	if len(runs) == 0 {
		return StyleMuted.Render("No runs recorded yet.")
	}

	headers := []string{"RUN", "HOST", "STARTED", "ELAPSED", "JOBS", "FAILED", "ERRORS", "WARNINGS"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.Host,
			humanize.RelTime(r.Started, now, "ago", "from now"),
			r.Elapsed.Round(time.Second).String(),
			fmt.Sprint(r.Jobs),
			fmt.Sprint(r.FailedJobs),
			fmt.Sprint(r.Errors),
			fmt.Sprint(r.Warnings),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	render := func(style lipgloss.Style, cells []string) string {
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = style.Width(widths[i] + 2).Render(c)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	var b strings.Builder
	b.WriteString(render(StyleTableHeader, headers))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(render(StyleTableRow, row))
		b.WriteString("\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
