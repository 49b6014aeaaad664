package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConfirmSkipToolchain returns the prompt asked for each unavailable
// toolchain. With assumeYes every toolchain is skipped without asking; when
// in is not a terminal nobody can answer, so the run is aborted.
func ConfirmSkipToolchain(assumeYes bool, in *os.File) func(toolchain string) bool {
	return func(toolchain string) bool {
		if assumeYes {
			return true
		}
		if !IsTerminal(in) {
			return false
		}

		skip := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Toolchain %q was not found on PATH", toolchain)).
			Description("Skip every configuration that uses it and continue?").
			Affirmative("Skip").
			Negative("Abort").
			Value(&skip).
			Run()
		if err != nil {
			return false
		}
		return skip
	}
}
