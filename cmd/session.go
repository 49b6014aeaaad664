package cmd

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"runtime"

	"grimm.is/vecmatrix/internal/brand"
	"grimm.is/vecmatrix/internal/builder"
	"grimm.is/vecmatrix/internal/clock"
	"grimm.is/vecmatrix/internal/config"
	"grimm.is/vecmatrix/internal/emulator"
	"grimm.is/vecmatrix/internal/features"
	"grimm.is/vecmatrix/internal/logging"
	"grimm.is/vecmatrix/internal/resources"
	"grimm.is/vecmatrix/internal/runctx"
)

// RunOptions carries the flags shared by run and plan.
type RunOptions struct {
	// ConfigFile is the matrix definition; empty uses ./matrix.hcl when
	// present, else the embedded default.
	ConfigFile string
	SDEPath    string
	// Emulators maps emulator names to paths given with -emulator name=path.
	Emulators map[string]string
	LogRoot   string
	SourceDir string
	// CPUInfo overrides the capability source, /proc/cpuinfo by default.
	CPUInfo string

	AssumeYes  bool
	DryRun     bool
	Seed       uint64
	SeedSet    bool
	Workers    int
	Iterations int
	Progress   bool
	Verbose    bool
	NoHistory  bool

	// Stdin answers the toolchain prompt; os.Stdin when nil.
	Stdin *os.File
	// Out receives tables and summaries; os.Stdout when nil.
	Out io.Writer
}

func (o RunOptions) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

func (o RunOptions) stdin() *os.File {
	if o.Stdin == nil {
		return os.Stdin
	}
	return o.Stdin
}

// session is the state shared by run and plan once flags are resolved.
type session struct {
	matrix *config.Matrix
	run    *runctx.Context
	host   resources.Host
	logger *logging.Logger
}

func configureLogging(verbose bool) *logging.Logger {
	cfg := logging.DefaultConfig()
	if verbose {
		cfg.Level = logging.LevelDebug
	}
	logger := logging.New(cfg)
	logging.SetDefault(logger)
	return logger
}

// loadMatrix loads path, or ./matrix.hcl, or the embedded default.
func loadMatrix(path string) (*config.Matrix, string, error) {
	if path == "" {
		if _, err := os.Stat(brand.MatrixFileName); err == nil {
			path = brand.MatrixFileName
		}
	}
	if path == "" {
		m, err := config.Default()
		return m, "built-in default", err
	}
	m, err := config.LoadFile(path)
	return m, path, err
}

// emulatorOverrides merges -sde-path into the -emulator overrides. An
// explicit -emulator sde=... wins.
func emulatorOverrides(opts RunOptions) map[string]string {
	overrides := maps.Clone(opts.Emulators)
	if overrides == nil {
		overrides = make(map[string]string)
	}
	if opts.SDEPath != "" {
		if _, ok := overrides["sde"]; !ok {
			overrides["sde"] = opts.SDEPath
		}
	}
	return overrides
}

func newSession(opts RunOptions, logger *logging.Logger) (*session, error) {
	m, source, err := loadMatrix(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded matrix definition", "source", source, "families", len(m.Families))

	for name := range opts.Emulators {
		if _, ok := m.Emulator(name); !ok {
			return nil, fmt.Errorf("unknown emulator %q in -emulator flag", name)
		}
	}

	cpuinfo := opts.CPUInfo
	if cpuinfo == "" {
		cpuinfo = features.DefaultCapabilitySource
	}
	feats, err := features.ProbeOrEmpty(cpuinfo)
	if err != nil {
		logger.Warn("host capability probe failed, every feature set will be emulated", "error", err)
	} else {
		logger.Debug("host features", "count", feats.Len())
	}

	seed := opts.Seed
	if !opts.SeedSet {
		seed = uint64(clock.Now().UnixNano())
	}

	run, err := runctx.New(runctx.Options{
		LogRoot:    opts.LogRoot,
		Seed:       seed,
		Iterations: opts.Iterations,
		Features:   feats,
		Emulators:  emulator.ResolvePaths(m, emulatorOverrides(opts), os.LookupEnv),
	})
	if err != nil {
		return nil, err
	}

	host, err := resources.Probe(resources.DefaultMountPoint)
	if err != nil {
		logger.Warn("memory probe failed, running one job at a time", "error", err)
		host = resources.Host{Cores: runtime.NumCPU()}
	}

	return &session{matrix: m, run: run, host: host, logger: logger}, nil
}

func (s *session) collaborator(opts RunOptions) builder.Collaborator {
	if opts.DryRun {
		d := builder.NewDryRunCollaborator()
		d.Tool = s.matrix.Build.Tool
		return d
	}
	return &builder.MakeCollaborator{Tool: s.matrix.Build.Tool, SourceDir: opts.SourceDir}
}

// printRemediation explains precondition faults the operator can fix.
func printRemediation(w io.Writer, err error) {
	var unavailable *emulator.UnavailableError
	if errors.As(err, &unavailable) {
		for _, line := range unavailable.Remediation() {
			Printer.Fprintln(w, line)
		}
	}
}
