package testutil

import (
	"os/exec"
	"testing"
)

// RequireTool skips the test unless every named executable is on PATH.
// Tests that drive real make or shell scripts use it so they still pass on
// minimal build hosts.
func RequireTool(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("Skipping test: requires %s on PATH", tool)
		}
	}
}
