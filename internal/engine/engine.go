// Package engine wires the pipeline together: generate, filter, deduplicate,
// check preconditions, plan, then execute and aggregate.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"grimm.is/vecmatrix/internal/builder"
	"grimm.is/vecmatrix/internal/clock"
	"grimm.is/vecmatrix/internal/config"
	"grimm.is/vecmatrix/internal/emulator"
	"grimm.is/vecmatrix/internal/history"
	"grimm.is/vecmatrix/internal/logging"
	"grimm.is/vecmatrix/internal/matrix"
	"grimm.is/vecmatrix/internal/metrics"
	"grimm.is/vecmatrix/internal/report"
	"grimm.is/vecmatrix/internal/resources"
	"grimm.is/vecmatrix/internal/runctx"
	"grimm.is/vecmatrix/internal/scheduler"
)

// MetricsFile is written into the log directory at the end of a run.
const MetricsFile = "metrics.prom"

// Options configure an Engine. Matrix, Run and Collaborator are required.
type Options struct {
	Matrix       *config.Matrix
	Run          *runctx.Context
	Collaborator builder.Collaborator

	// Lookup and Confirm drive the toolchain filter.
	Lookup  matrix.LookupFunc
	Confirm matrix.ConfirmFunc
	// Exists checks emulator paths; emulator.Exists when nil.
	Exists emulator.StatFunc

	Host resources.Host
	// Workers overrides the planned budget when positive.
	Workers int

	// History, when set, receives a record of the finished run.
	History *history.Store

	// OnComplete is called once per finished job, serialized.
	OnComplete func(done, total int, res builder.JobResult)

	Logger *logging.Logger
}

// Plan is the outcome of Prepare: what will run and how wide.
type Plan struct {
	Configs []matrix.TestConfig
	// Generated and Available count configs before dedup.
	Generated int
	Available int
	// MissingToolchains were confirmed away by the operator.
	MissingToolchains []string
	// Emulators are the names of emulators some config needs.
	Emulators []string
	Budget    resources.Budget
}

// Outcome is everything a finished run produced.
type Outcome struct {
	Report      *report.Report
	Results     []builder.JobResult
	Statuses    []scheduler.JobStatus
	FailedJobs  int
	Elapsed     time.Duration
	Summary     report.Summary
	SummaryPath string
	MetricsPath string
}

// Engine runs one matrix.
type Engine struct {
	opts    Options
	metrics *metrics.Registry
	base    *logging.Logger
	logger  *logging.Logger
}

// New creates an engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		opts:    opts,
		metrics: metrics.New(),
		base:    logger,
		logger:  logger.WithComponent("engine"),
	}
}

// Metrics returns the run's metric registry.
func (e *Engine) Metrics() *metrics.Registry {
	return e.metrics
}

// Resolver returns the emulator resolver for this run.
func (e *Engine) Resolver() *emulator.Resolver {
	run := e.opts.Run
	return emulator.NewResolver(run.HostArch(), run.Features(), run.Emulators())
}

// Prepare builds the final config set and worker budget. Its errors are
// precondition faults: nothing has been built or written when it fails.
func (e *Engine) Prepare() (*Plan, error) {
	m := e.opts.Matrix
	specs := e.opts.Run.Emulators()

	configs := matrix.Generate(m, e.Resolver())
	plan := &Plan{Generated: len(configs)}
	e.metrics.SetStage(metrics.StageGenerated, len(configs))
	e.logger.Info("generated configurations", "configs", len(configs), "families", len(m.Families))

	filtered, err := matrix.FilterAvailable(configs, e.opts.Lookup, e.opts.Confirm)
	if err != nil {
		return nil, err
	}
	plan.Available = len(filtered.Configs)
	plan.MissingToolchains = filtered.Missing
	e.metrics.SetStage(metrics.StageAvailable, plan.Available)

	plan.Configs = matrix.Dedup(filtered.Configs)
	e.metrics.SetStage(metrics.StageDeduplicated, len(plan.Configs))
	e.metrics.ObserveConfigs(plan.Configs)
	if dropped := plan.Available - len(plan.Configs); dropped > 0 {
		e.logger.Info("removed duplicate configurations", "dropped", dropped)
	}

	if err := emulator.CheckAvailable(plan.Configs, specs, e.opts.Exists); err != nil {
		return nil, err
	}
	plan.Emulators = emulator.Required(plan.Configs, specs)

	host := e.opts.Host
	plan.Budget = resources.Plan(host.Cores, host.MemoryBytes, m.TaskMemoryBytes()).WithWorkers(e.opts.Workers)
	e.metrics.Workers.Set(float64(plan.Budget.Workers))
	if plan.Budget.MemoryLimited {
		e.logger.Warn("worker count limited by memory",
			"workers", plan.Budget.Workers,
			"core_bound", plan.Budget.CoreBound,
			"memory_bound", plan.Budget.MemoryBound)
	}
	e.logger.Info("planned run", "configs", len(plan.Configs), "budget", plan.Budget.String())

	return plan, nil
}

// Execute runs every planned config to completion, then aggregates. Job
// failures are data in the outcome, never an error; errors mean the run's
// own directories or outputs could not be written.
func (e *Engine) Execute(ctx context.Context, plan *Plan) (*Outcome, error) {
	run := e.opts.Run
	logDir, buildRoot := run.LogDir(), run.BuildRoot()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := os.MkdirAll(buildRoot, 0755); err != nil {
		return nil, fmt.Errorf("create build root: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(buildRoot); err != nil {
			e.logger.Warn("failed to remove build root", "dir", buildRoot, "error", err)
		}
	}()

	runnerOpts := builder.OptionsFromMatrix(e.opts.Matrix, logDir, buildRoot)
	if n := run.Iterations(); n > 0 {
		runnerOpts.Iterations = n
	}
	runner := builder.NewRunner(e.opts.Collaborator, runnerOpts, e.base.WithComponent("runner"))

	configs := matrix.Shuffle(plan.Configs, run.Seed())
	results := make([]builder.JobResult, len(configs))
	jobs := make([]scheduler.Job, len(configs))
	for i, cfg := range configs {
		jobs[i] = scheduler.Job{
			ID:   cfg.Slug(),
			Name: cfg.String(),
			Func: func(ctx context.Context) error {
				// Each job owns its slot; no other goroutine touches results[i].
				results[i] = runner.Run(ctx, cfg)
				e.metrics.ObserveJob(results[i])
				return results[i].Err()
			},
		}
	}

	pool := scheduler.New(plan.Budget.Workers, e.base)
	if e.opts.OnComplete != nil {
		bySlug := make(map[string]int, len(configs))
		for i, cfg := range configs {
			bySlug[cfg.Slug()] = i
		}
		pool.OnComplete = func(s scheduler.JobStatus) {
			e.opts.OnComplete(s.Seq, len(configs), results[bySlug[s.ID]])
		}
	}

	e.logger.Info("executing", "configs", len(configs), "workers", pool.Workers(), "log_dir", logDir)
	start := clock.Now()
	statuses := pool.Run(ctx, jobs)
	elapsed := clock.Since(start)

	rep, err := report.Aggregate(logDir)
	if err != nil {
		return nil, fmt.Errorf("aggregate logs: %w", err)
	}

	out := &Outcome{
		Report:   rep,
		Results:  results,
		Statuses: statuses,
		Elapsed:  elapsed,
	}
	for _, s := range statuses {
		if s.Failed() {
			out.FailedJobs++
		}
	}

	e.metrics.ObserveReport(rep, elapsed)
	out.MetricsPath = filepath.Join(logDir, MetricsFile)
	if err := e.metrics.WriteFile(out.MetricsPath); err != nil {
		return nil, fmt.Errorf("write metrics: %w", err)
	}

	summary := rep.Summary(run.RunID(), run.Hostname(), run.Started(), elapsed)
	summary.Seed = run.Seed()
	summary.Workers = pool.Workers()
	summary.Jobs = len(configs)
	summary.FailedJobs = out.FailedJobs
	if out.SummaryPath, err = rep.WriteSummary(summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	out.Summary = summary

	e.record(out)

	e.logger.Info("run finished",
		"jobs", len(configs),
		"failed_jobs", out.FailedJobs,
		"errors", rep.Errors,
		"warnings", rep.Warnings,
		"elapsed", elapsed.Round(time.Millisecond))
	return out, nil
}

// record writes the run to the history store. History is best effort: a
// failure is logged and the run still succeeds.
func (e *Engine) record(out *Outcome) {
	if e.opts.History == nil {
		return
	}
	run := e.opts.Run
	jobs := make([]history.Job, 0, len(out.Results))
	for _, res := range out.Results {
		jobs = append(jobs, history.JobFromResult(run.RunID(), res))
	}
	err := e.opts.History.Record(history.Run{
		ID:         run.RunID(),
		Host:       run.Hostname(),
		Started:    run.Started(),
		Elapsed:    out.Elapsed,
		Jobs:       len(out.Results),
		FailedJobs: out.FailedJobs,
		Errors:     out.Report.Errors,
		Warnings:   out.Report.Warnings,
		LogDir:     run.LogDir(),
	}, jobs)
	if err != nil {
		e.logger.Warn("failed to record run history", "error", err)
	}
}
