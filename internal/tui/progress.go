package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// recentJobs is how many finished jobs the progress view lists.
const recentJobs = 5

// JobDoneMsg reports one finished job to the progress view.
type JobDoneMsg struct {
	Done   int
	Total  int
	Name   string
	Failed bool
}

// RunFinishedMsg tells the progress view to exit.
type RunFinishedMsg struct{}

// ProgressModel renders a live progress bar while the pool runs.
type ProgressModel struct {
	Total    int
	Done     int
	Failed   int
	Recent   []JobDoneMsg
	Finished bool

	bar     progress.Model
	spinner spinner.Model
}

// NewProgressModel creates a view for a run of total jobs.
func NewProgressModel(total int) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Line
	s.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	return ProgressModel{
		Total:   total,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner: s,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case JobDoneMsg:
		m.Done = msg.Done
		if msg.Total > 0 {
			m.Total = msg.Total
		}
		if msg.Failed {
			m.Failed++
		}
		m.Recent = append(m.Recent, msg)
		if len(m.Recent) > recentJobs {
			m.Recent = m.Recent[len(m.Recent)-recentJobs:]
		}
		return m, nil

	case RunFinishedMsg:
		m.Finished = true
		return m, tea.Quit

	case tea.KeyMsg:
		// Closing the view does not stop the run; jobs are never cancelled.
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-20, 80), 10)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Percent is the finished share of the run.
func (m ProgressModel) Percent() float64 {
	if m.Total == 0 {
		return 1
	}
	return float64(m.Done) / float64(m.Total)
}

func (m ProgressModel) View() string {
	var b strings.Builder

	status := m.spinner.View()
	if m.Finished {
		status = StylePass.Render("done")
	}
	fmt.Fprintf(&b, "%s %s %d/%d", status, m.bar.ViewAs(m.Percent()), m.Done, m.Total)
	if m.Failed > 0 {
		b.WriteString("  " + StyleFail.Render(fmt.Sprintf("%d failed", m.Failed)))
	}
	b.WriteString("\n")

	for _, j := range m.Recent {
		mark := StylePass.Render("ok  ")
		if j.Failed {
			mark = StyleFail.Render("FAIL")
		}
		fmt.Fprintf(&b, "  %s %s\n", mark, StyleMuted.Render(j.Name))
	}
	return b.String()
}
