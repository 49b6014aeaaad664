package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"grimm.is/vecmatrix/internal/brand"
	"grimm.is/vecmatrix/internal/report"
	"grimm.is/vecmatrix/internal/tui"
)

// RunReport re-aggregates the logs of a finished run. When the run left a
// summary.yaml its counts are refreshed; otherwise only counts are printed.
func RunReport(logDir string, out io.Writer) error {
	if logDir == "" {
		return fmt.Errorf("usage: %s report <logdir>", brand.BinaryName)
	}
	info, err := os.Stat(logDir)
	if err != nil {
		return fmt.Errorf("log directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", logDir)
	}

	rep, err := report.Aggregate(logDir)
	if err != nil {
		return err
	}

	summary, err := report.LoadSummary(logDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		Printer.Fprintf(out, "Scanned %d log files in %s\n", rep.FilesScanned, logDir)
		Printer.Fprintf(out, "Number of errors (see file %s): %d\n", rep.ErrorsPath, rep.Errors)
		Printer.Fprintf(out, "Number of warnings (see file %s): %d\n", rep.WarningsPath, rep.Warnings)
		return nil
	case err != nil:
		return err
	}

	summary.Errors = rep.Errors
	summary.Warnings = rep.Warnings
	summary.ErrorsLog = rep.ErrorsPath
	summary.WarningsLog = rep.WarningsPath
	if _, err := rep.WriteSummary(*summary); err != nil {
		return err
	}
	fmt.Fprintln(out, tui.RenderSummary(*summary))
	return nil
}
