// Package runctx holds the values fixed for the lifetime of one run. A
// Context is built once at startup and only read afterwards.
package runctx

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"grimm.is/vecmatrix/internal/brand"
	"grimm.is/vecmatrix/internal/clock"
	"grimm.is/vecmatrix/internal/emulator"
	"grimm.is/vecmatrix/internal/features"
)

// Options are the inputs to New. Zero values are filled from the host.
type Options struct {
	RunID      string
	Hostname   string
	HostArch   string
	LogRoot    string
	TempDir    string
	Seed       uint64
	Iterations int
	Features   features.HostFeatureSet
	Emulators  map[string]emulator.Spec
}

// Context is the immutable per-run state shared by every component.
type Context struct {
	runID      string
	hostname   string
	hostArch   string
	started    time.Time
	logDir     string
	buildRoot  string
	seed       uint64
	iterations int
	features   features.HostFeatureSet
	emulators  map[string]emulator.Spec
}

// New builds a Context, deriving the log directory and build root from the
// start time. It does not create either directory.
func New(opts Options) (*Context, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	if opts.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("hostname: %w", err)
		}
		opts.Hostname = h
	}
	if opts.HostArch == "" {
		opts.HostArch = runtime.GOARCH
	}
	if opts.LogRoot == "" {
		opts.LogRoot = brand.GetLogDir()
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}

	started := clock.Now()
	stamp := clock.Stamp(started)

	return &Context{
		runID:      opts.RunID,
		hostname:   opts.Hostname,
		hostArch:   opts.HostArch,
		started:    started,
		logDir:     filepath.Join(opts.LogRoot, fmt.Sprintf("%s_%s_%s", brand.LogDirPrefix, opts.Hostname, stamp)),
		buildRoot:  filepath.Join(opts.TempDir, fmt.Sprintf("%s_%s", brand.BuildDirPrefix, stamp)),
		seed:       opts.Seed,
		iterations: opts.Iterations,
		features:   opts.Features,
		emulators:  maps.Clone(opts.Emulators),
	}, nil
}

func (c *Context) RunID() string      { return c.runID }
func (c *Context) Hostname() string   { return c.hostname }
func (c *Context) HostArch() string   { return c.hostArch }
func (c *Context) Started() time.Time { return c.started }
func (c *Context) LogDir() string     { return c.logDir }
func (c *Context) BuildRoot() string  { return c.buildRoot }
func (c *Context) Seed() uint64       { return c.seed }
func (c *Context) Iterations() int    { return c.iterations }

// Features returns the host feature set. HostFeatureSet is read-only.
func (c *Context) Features() features.HostFeatureSet { return c.features }

// Emulators returns a copy of the resolved emulator table.
func (c *Context) Emulators() map[string]emulator.Spec {
	return maps.Clone(c.emulators)
}

// Elapsed is the time since the run started.
func (c *Context) Elapsed() time.Duration {
	return clock.Since(c.started)
}
