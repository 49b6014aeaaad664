package cmd

import (
	"fmt"
	"io"
	"os"

	"grimm.is/vecmatrix/internal/brand"
	"grimm.is/vecmatrix/internal/config"
)

// RunInit writes the built-in matrix definition to path so it can be edited.
// An existing file is only replaced when force is set.
func RunInit(path string, force bool, out io.Writer) error {
	if path == "" {
		path = brand.MatrixFileName
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	}
	if err := os.WriteFile(path, config.DefaultSource(), 0644); err != nil {
		return fmt.Errorf("write matrix definition: %w", err)
	}
	Printer.Fprintf(out, "Wrote %s\n", path)
	return nil
}
