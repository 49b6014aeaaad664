package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"grimm.is/vecmatrix/internal/clock"
	"grimm.is/vecmatrix/internal/config"
	"grimm.is/vecmatrix/internal/logging"
	"grimm.is/vecmatrix/internal/matrix"
)

// State is a step of the per-job state machine.
type State int

const (
	StateCleaning State = iota
	StateBuilding
	StateTesting
	StateCleaningUp
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCleaning:
		return "cleaning"
	case StateBuilding:
		return "building"
	case StateTesting:
		return "testing"
	case StateCleaningUp:
		return "cleaning-up"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// CompileLogSuffix names the log shared by clean and build.
const CompileLogSuffix = "compile"

// TestOutcome is the result of one test binary.
type TestOutcome struct {
	Binary   string `json:"binary"`
	ExitCode int    `json:"exit_code"`
	LogPath  string `json:"log_path"`
	// Err is set when the binary could not be launched.
	Err string `json:"error,omitempty"`
}

// Failed reports whether a failure marker was written for this binary.
func (o TestOutcome) Failed() bool {
	return o.ExitCode != 0 || o.Err != ""
}

// JobResult is everything a finished job produced.
type JobResult struct {
	Config      matrix.TestConfig
	State       State
	Transitions []State
	BuildOK     bool
	BuildError  string
	Tests       []TestOutcome
	Logs        []string
	Started     time.Time
	Duration    time.Duration
}

// FailedTests counts test binaries that failed.
func (r JobResult) FailedTests() int {
	n := 0
	for _, t := range r.Tests {
		if t.Failed() {
			n++
		}
	}
	return n
}

// Err summarizes the job's failures, nil when it built and every test passed.
func (r JobResult) Err() error {
	if !r.BuildOK {
		return fmt.Errorf("build failed: %s", r.BuildError)
	}
	if n := r.FailedTests(); n > 0 {
		return fmt.Errorf("%d of %d tests failed", n, len(r.Tests))
	}
	return nil
}

func (r *JobResult) enter(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// Options configure a Runner.
type Options struct {
	LogDir     string
	BuildRoot  string
	Tests      []config.TestBinary
	Iterations int
	Targets    []string
}

// OptionsFromMatrix fills the test and build settings from a definition.
func OptionsFromMatrix(m *config.Matrix, logDir, buildRoot string) Options {
	opts := Options{
		LogDir:     logDir,
		BuildRoot:  buildRoot,
		Tests:      m.Tests,
		Iterations: m.Iterations,
	}
	if m.Build != nil {
		opts.Targets = m.Build.Targets
	}
	return opts
}

// Runner executes jobs. It holds no per-job state and is safe for
// concurrent use.
type Runner struct {
	collab Collaborator
	opts   Options
	logger *logging.Logger
}

// NewRunner creates a runner.
func NewRunner(collab Collaborator, opts Options, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.WithComponent("runner")
	}
	if len(opts.Targets) == 0 {
		opts.Targets = config.DefaultBuildTargets
	}
	return &Runner{collab: collab, opts: opts, logger: logger}
}

// BuildDir is the private directory a config builds in.
func (r *Runner) BuildDir(cfg matrix.TestConfig) string {
	return filepath.Join(r.opts.BuildRoot, cfg.Slug())
}

// LogPath is the path of a config's log for the given phase.
func (r *Runner) LogPath(cfg matrix.TestConfig, phase string) string {
	return filepath.Join(r.opts.LogDir, cfg.Slug()+"_"+phase+".log")
}

// TestArgs returns the arguments for a test binary: its own args followed by
// the iteration count.
func (r *Runner) TestArgs(t config.TestBinary) []string {
	args := append([]string(nil), t.Args...)
	if r.opts.Iterations > 0 {
		args = append(args, strconv.Itoa(r.opts.Iterations))
	}
	return args
}

// Run drives cfg through every state. It always reaches StateDone and always
// removes the build directory; failures end up in the logs and the result.
func (r *Runner) Run(ctx context.Context, cfg matrix.TestConfig) (res JobResult) {
	res = JobResult{Config: cfg, Started: clock.Now()}
	log := r.logger.WithConfig(cfg.Slug())
	dir := r.BuildDir(cfg)

	defer func() {
		res.enter(StateCleaningUp)
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("failed to remove build directory", "dir", dir, "error", err)
		}
		res.enter(StateDone)
		res.Duration = clock.Since(res.Started)
		log.Info("job finished", "build_ok", res.BuildOK, "failed_tests", res.FailedTests(), "duration", res.Duration.Round(time.Millisecond))
	}()

	res.enter(StateCleaning)
	compilePath := r.LogPath(cfg, CompileLogSuffix)
	compileLog, err := os.Create(compilePath)
	if err != nil {
		res.BuildError = err.Error()
		log.Error("cannot create compile log", "path", compilePath, "error", err)
		return res
	}
	defer compileLog.Close()
	res.Logs = append(res.Logs, compilePath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		res.BuildError = err.Error()
		fmt.Fprintf(compileLog, "ERROR: cannot create build directory: %v\n", err)
		return res
	}

	if err := r.collab.Clean(ctx, dir, compileLog); err != nil {
		fmt.Fprintf(compileLog, "WARNING: clean failed: %v\n", err)
		log.Warn("clean failed", "error", err)
	}

	res.enter(StateBuilding)
	log.Debug("building", "config", cfg.String())
	params := BuildParams{
		Compiler:  cfg.Toolchain,
		OptFlags:  cfg.OptFlags,
		ArchFlags: cfg.ArchFlags,
		StdFlags:  cfg.StdFlags,
		Defines:   cfg.Defines,
		Static:    cfg.Static,
		Targets:   r.opts.Targets,
	}
	if err := r.collab.Build(ctx, dir, params, compileLog); err != nil {
		res.BuildError = err.Error()
		fmt.Fprintf(compileLog, "ERROR: build failed: %v\n", err)
		log.Warn("build failed", "error", err)
		if !cfg.Sandbox {
			res.Logs = append(res.Logs, r.markNotRun(cfg)...)
		}
		return res
	}
	res.BuildOK = true

	if cfg.Sandbox {
		return res
	}

	res.enter(StateTesting)
	for _, t := range r.opts.Tests {
		outcome := r.runTest(ctx, cfg, dir, t)
		res.Tests = append(res.Tests, outcome)
		res.Logs = append(res.Logs, outcome.LogPath)
		if outcome.Failed() {
			log.Warn("test failed", "binary", t.Name, "exit_code", outcome.ExitCode, "error", outcome.Err)
		}
	}
	return res
}

func (r *Runner) runTest(ctx context.Context, cfg matrix.TestConfig, dir string, t config.TestBinary) TestOutcome {
	outcome := TestOutcome{Binary: t.Name, LogPath: r.LogPath(cfg, t.Log)}

	f, err := os.Create(outcome.LogPath)
	if err != nil {
		outcome.ExitCode, outcome.Err = -1, err.Error()
		return outcome
	}
	defer f.Close()

	code, err := r.collab.RunTest(ctx, dir, t.Name, r.TestArgs(t), cfg.Emulator, f)
	outcome.ExitCode = code
	if err != nil {
		outcome.Err = err.Error()
		fmt.Fprintln(f, err)
	}
	if outcome.Failed() {
		writeFailureMarker(f, t.Name)
	}
	return outcome
}

// markNotRun writes a not-run marker to every test log of a config whose
// build failed, so the aggregate still counts the lost coverage.
func (r *Runner) markNotRun(cfg matrix.TestConfig) []string {
	var logs []string
	for _, t := range r.opts.Tests {
		path := r.LogPath(cfg, t.Log)
		msg := fmt.Sprintf("ERROR: %s not run (build failed)\n", t.Name)
		if err := os.WriteFile(path, []byte(msg), 0644); err != nil {
			r.logger.Warn("cannot write test log", "path", path, "error", err)
			continue
		}
		logs = append(logs, path)
	}
	return logs
}

// writeFailureMarker records a failed binary in text so the aggregator can
// find it; the exit status is otherwise lost.
func writeFailureMarker(w io.Writer, binary string) {
	fmt.Fprintf(w, "ERROR: %s failed\n", binary)
}
