package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/vecmatrix/internal/brand"
	"grimm.is/vecmatrix/internal/report"
)

// ErrRunsDiffer is returned by RunDiff when the runs' error logs differ.
var ErrRunsDiffer = errors.New("runs differ")

// RunDiff compares the aggregated errors of two runs. Log paths are made
// relative to each run's directory so only findings are compared.
func RunDiff(dirA, dirB string, out io.Writer) error {
	if dirA == "" || dirB == "" {
		return fmt.Errorf("usage: %s diff <logdirA> <logdirB>", brand.BinaryName)
	}

	a, err := readFindings(dirA)
	if err != nil {
		return err
	}
	b, err := readFindings(dirB)
	if err != nil {
		return err
	}

	if a == b {
		Printer.Fprintln(out, "No differences in errors.")
		return nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: filepath.Join(dirA, report.ErrorsFile),
		ToFile:   filepath.Join(dirB, report.ErrorsFile),
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}
	fmt.Fprint(out, text)

	return ErrRunsDiffer
}

func readFindings(logDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(logDir, report.ErrorsFile))
	if err != nil {
		return "", fmt.Errorf("read %s: %w (run '%s report %s' first)", report.ErrorsFile, err, brand.BinaryName, logDir)
	}
	prefix := filepath.Clean(logDir) + string(filepath.Separator)
	lines := strings.SplitAfter(string(data), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, ""), nil
}
