package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"grimm.is/vecmatrix/internal/brand"
	"grimm.is/vecmatrix/internal/builder"
	"grimm.is/vecmatrix/internal/engine"
	"grimm.is/vecmatrix/internal/history"
	"grimm.is/vecmatrix/internal/logging"
	"grimm.is/vecmatrix/internal/resources"
	"grimm.is/vecmatrix/internal/tui"
)

// RunMatrix builds and tests every configuration of the matrix. Failing jobs
// are reported in the logs and summary; only precondition faults are errors.
func RunMatrix(ctx context.Context, opts RunOptions) error {
	logger := configureLogging(opts.Verbose)

	s, err := newSession(opts, logger)
	if err != nil {
		return err
	}
	logger = logger.WithRun(s.run.RunID())

	var store *history.Store
	if !opts.NoHistory && !opts.DryRun {
		store, err = history.Open(brand.GetHistoryPath())
		if err != nil {
			logger.Warn("run history disabled", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	var program *tea.Program
	showProgress := opts.Progress && tui.IsTerminal(os.Stdout)

	eng := engine.New(engine.Options{
		Matrix:       s.matrix,
		Run:          s.run,
		Collaborator: s.collaborator(opts),
		Confirm:      tui.ConfirmSkipToolchain(opts.AssumeYes, opts.stdin()),
		Host:         s.host,
		Workers:      opts.Workers,
		History:      store,
		OnComplete: func(done, total int, res builder.JobResult) {
			if program == nil {
				return
			}
			program.Send(tui.JobDoneMsg{
				Done:   done,
				Total:  total,
				Name:   res.Config.String(),
				Failed: res.Err() != nil,
			})
		},
		Logger: logger,
	})

	plan, err := eng.Prepare()
	if err != nil {
		printRemediation(os.Stderr, err)
		return err
	}

	w := opts.out()
	Printer.Fprintf(w, "Testing %d configurations with %s\n", len(plan.Configs), plan.Budget)
	Printer.Fprintf(w, "Logs: %s\n", s.run.LogDir())
	if opts.DryRun {
		Printer.Fprintln(w, "[dry-run] build commands are recorded in the logs, nothing is executed")
	}

	if err := resources.LowerPriority(); err != nil {
		logger.Warn("failed to lower process priority", "error", err)
	}

	var out *engine.Outcome
	if showProgress {
		out, err = executeWithProgress(ctx, eng, plan, logger, &program)
	} else {
		out, err = eng.Execute(ctx, plan)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Fprintln(w, tui.RenderSummary(out.Summary))
	return nil
}

// executeWithProgress runs the pool behind a progress view. Log output is
// quieted while the view owns the terminal. Closing the view early does not
// stop the jobs; the run is still awaited.
func executeWithProgress(ctx context.Context, eng *engine.Engine, plan *engine.Plan, logger *logging.Logger, program **tea.Program) (*engine.Outcome, error) {
	level := logger.GetLevel()
	logger.SetLevel(logging.LevelError)
	defer logger.SetLevel(level)

	p := tea.NewProgram(tui.NewProgressModel(len(plan.Configs)))
	*program = p

	type result struct {
		out *engine.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := eng.Execute(ctx, plan)
		done <- result{out, err}
		p.Send(tui.RunFinishedMsg{})
	}()

	if _, err := p.Run(); err != nil {
		logger.Warn("progress view failed", "error", err)
	}
	r := <-done
	return r.out, r.err
}
