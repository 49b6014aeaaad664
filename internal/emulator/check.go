package emulator

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"grimm.is/vecmatrix/internal/matrix"
)

// ErrEmulatorUnavailable is the precondition fault raised before any work
// starts when a required emulator is missing.
var ErrEmulatorUnavailable = errors.New("required emulator unavailable")

// UnavailableError lists the missing emulators and how to supply them.
type UnavailableError struct {
	Missing []Spec
	// Configs counts the configurations that needed a missing emulator.
	Configs int
}

func (e *UnavailableError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, s := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s path from %s is invalid: %q", s.Name, s.Source, s.Path))
	}
	return fmt.Sprintf("%s for %d configs: %s", ErrEmulatorUnavailable, e.Configs, strings.Join(parts, "; "))
}

func (e *UnavailableError) Unwrap() error {
	return ErrEmulatorUnavailable
}

// Remediation returns operator guidance, one line per entry.
func (e *UnavailableError) Remediation() []string {
	var lines []string
	for _, s := range e.Missing {
		lines = append(lines, fmt.Sprintf("Please specify a valid path to the %q executable with one of the following options:", s.Name))
		if s.Name == "sde" {
			lines = append(lines, "  - the -sde-path command line flag (Intel SDE: https://www.intel.com/content/www/us/en/developer/articles/tool/software-development-emulator.html)")
		}
		lines = append(lines, fmt.Sprintf("  - the -emulator %s=PATH command line flag", s.Name))
		if s.Env != "" {
			lines = append(lines, fmt.Sprintf("  - the %s environment variable", s.Env))
		}
		lines = append(lines, fmt.Sprintf("  - the path attribute of emulator %q in the matrix definition", s.Name))
	}
	return lines
}

// StatFunc reports whether path exists.
type StatFunc func(path string) bool

// Exists is the default StatFunc.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// CheckAvailable verifies, over the whole config set, that every emulator
// some config needs exists on disk. It runs once before scheduling so a
// missing emulator aborts the run before any build time is spent.
func CheckAvailable(configs []matrix.TestConfig, specs map[string]Spec, exists StatFunc) error {
	if exists == nil {
		exists = Exists
	}

	byPrefix := make(map[string]Spec, len(specs))
	for _, s := range specs {
		byPrefix[s.command()] = s
	}

	missing := make(map[string]Spec)
	count := 0
	for _, c := range configs {
		if !c.Emulated() {
			continue
		}
		spec, ok := byPrefix[c.Emulator]
		if !ok {
			spec = Spec{Name: c.Emulator, Source: SourceConfig}
		}
		if !exists(spec.Path) {
			missing[spec.Name] = spec
			count++
		}
	}
	if len(missing) == 0 {
		return nil
	}

	names := make([]string, 0, len(missing))
	for n := range missing {
		names = append(names, n)
	}
	sort.Strings(names)
	err := &UnavailableError{Configs: count}
	for _, n := range names {
		err.Missing = append(err.Missing, missing[n])
	}
	return err
}

// Required returns the names of emulators at least one config needs.
func Required(configs []matrix.TestConfig, specs map[string]Spec) []string {
	byCommand := make(map[string]string, len(specs))
	for _, s := range specs {
		byCommand[s.command()] = s.Name
	}

	seen := make(map[string]bool)
	var out []string
	for _, c := range configs {
		if name, ok := byCommand[c.Emulator]; ok && c.Emulated() && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
