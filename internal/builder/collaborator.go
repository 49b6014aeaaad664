// Package builder drives one configuration through clean, build, test and
// cleanup against an external build collaborator.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
)

// BuildParams are the named parameters handed to the build tool.
type BuildParams struct {
	BuildDir  string
	Compiler  string
	OptFlags  string
	ArchFlags string
	StdFlags  string
	Defines   string
	Static    bool
	Targets   []string
}

// StaticFlag is passed as flags_static when a config requests static linking.
const StaticFlag = "-static"

// Variables returns the build tool's variable assignments in a fixed order.
func (p BuildParams) Variables() []string {
	vars := []string{
		"build_dir=" + p.BuildDir,
		"compiler=" + p.Compiler,
		"optflags=" + p.OptFlags,
		"flags_arch=" + p.ArchFlags,
		"flags_std=" + p.StdFlags,
		"sandbox_defines=" + p.Defines,
	}
	if p.Static {
		vars = append(vars, "flags_static="+StaticFlag)
	}
	return vars
}

// Collaborator is the external build system plus the test binaries it
// produces. Every method writes the combined output of what it runs to out.
type Collaborator interface {
	Clean(ctx context.Context, dir string, out io.Writer) error
	Build(ctx context.Context, dir string, params BuildParams, out io.Writer) error
	// RunTest runs binary from dir, prefixed by emulator when non-empty, and
	// returns its exit code. A non-nil error means it could not be launched.
	RunTest(ctx context.Context, dir, binary string, args []string, emulator string, out io.Writer) (int, error)
}

// MakeCollaborator invokes make in the library's source tree.
type MakeCollaborator struct {
	// Tool is the make executable, "make" when empty.
	Tool string
	// SourceDir is the directory containing the library's Makefile; empty
	// uses the working directory.
	SourceDir string
}

func (m *MakeCollaborator) tool() string {
	if m.Tool == "" {
		return "make"
	}
	return m.Tool
}

func (m *MakeCollaborator) run(ctx context.Context, out io.Writer, args ...string) error {
	cmd := exec.CommandContext(ctx, m.tool(), args...)
	cmd.Dir = m.SourceDir
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", m.tool(), shellquote.Join(args...), err)
	}
	return nil
}

// Clean runs "make build_dir=<dir> clean".
func (m *MakeCollaborator) Clean(ctx context.Context, dir string, out io.Writer) error {
	return m.run(ctx, out, "build_dir="+dir, "clean")
}

// Build runs make with the config's variables and targets.
func (m *MakeCollaborator) Build(ctx context.Context, dir string, params BuildParams, out io.Writer) error {
	params.BuildDir = dir
	args := append(params.Variables(), params.Targets...)
	return m.run(ctx, out, args...)
}

// RunTest executes a built test binary, splitting the emulator prefix into
// its own argv.
func (m *MakeCollaborator) RunTest(ctx context.Context, dir, binary string, args []string, emulator string, out io.Writer) (int, error) {
	argv, err := testArgv(dir, binary, args, emulator)
	if err != nil {
		return -1, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = out
	cmd.Stderr = out
	err = cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), nil
	default:
		return -1, err
	}
}

func testArgv(dir, binary string, args []string, emulator string) ([]string, error) {
	var argv []string
	if strings.TrimSpace(emulator) != "" {
		prefix, err := shellquote.Split(emulator)
		if err != nil {
			return nil, fmt.Errorf("parse emulator %q: %w", emulator, err)
		}
		argv = append(argv, prefix...)
	}
	argv = append(argv, filepath.Join(dir, binary))
	return append(argv, args...), nil
}

// DryRunCollaborator records the commands a MakeCollaborator would run and
// writes each one to the job's log instead of executing it.
type DryRunCollaborator struct {
	mu       sync.Mutex
	Tool     string
	Commands []string
}

// NewDryRunCollaborator creates a dry run collaborator.
func NewDryRunCollaborator() *DryRunCollaborator {
	return &DryRunCollaborator{Tool: "make", Commands: make([]string, 0)}
}

func (d *DryRunCollaborator) record(out io.Writer, argv []string) {
	line := shellquote.Join(argv...)
	d.mu.Lock()
	d.Commands = append(d.Commands, line)
	d.mu.Unlock()
	fmt.Fprintf(out, "[dry-run] %s\n", line)
}

func (d *DryRunCollaborator) Clean(ctx context.Context, dir string, out io.Writer) error {
	d.record(out, []string{d.Tool, "build_dir=" + dir, "clean"})
	return nil
}

func (d *DryRunCollaborator) Build(ctx context.Context, dir string, params BuildParams, out io.Writer) error {
	params.BuildDir = dir
	argv := append([]string{d.Tool}, params.Variables()...)
	d.record(out, append(argv, params.Targets...))
	return nil
}

func (d *DryRunCollaborator) RunTest(ctx context.Context, dir, binary string, args []string, emulator string, out io.Writer) (int, error) {
	argv, err := testArgv(dir, binary, args, emulator)
	if err != nil {
		return -1, err
	}
	d.record(out, argv)
	return 0, nil
}

// Recorded returns a copy of the recorded command lines.
func (d *DryRunCollaborator) Recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Commands...)
}
