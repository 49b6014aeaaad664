package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"

	"grimm.is/vecmatrix/internal/brand"
	"grimm.is/vecmatrix/internal/config"
	"grimm.is/vecmatrix/internal/emulator"
	"grimm.is/vecmatrix/internal/features"
	"grimm.is/vecmatrix/internal/matrix"
)

// RunCheck validates a matrix definition file and summarizes it.
func RunCheck(configFile string, verbose bool, out io.Writer) error {
	if len(configFile) == 0 {
		return fmt.Errorf("usage: %s check [-v] <matrix-file>\nExample: %s check -v %s", brand.BinaryName, brand.BinaryName, brand.MatrixFileName)
	}

	m, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("matrix definition invalid: %w", err)
	}

	// Count against a host that supports nothing, so every flag set is
	// generated the same way on any machine.
	specs := emulator.ResolvePaths(m, nil, os.LookupEnv)
	configs := matrix.Generate(m, emulator.NewResolver(runtime.GOARCH, features.NewHostFeatureSet(), specs))

	Printer.Fprintf(out, "Matrix definition valid!\n")
	Printer.Fprintf(out, "Schema Version: %s\n", m.SchemaVersion)
	Printer.Fprintf(out, "Toolchains: %d\n", len(m.Toolchains))
	Printer.Fprintf(out, "Families: %d\n", len(m.Families))
	Printer.Fprintf(out, "Emulators: %d\n", len(m.Emulators))
	Printer.Fprintf(out, "Test binaries: %d\n", len(m.Tests))
	Printer.Fprintf(out, "Configurations: %d (%d distinct)\n", len(configs), len(matrix.Dedup(configs)))

	if verbose {
		Printer.Fprintln(out)
		printSummary(out, m, specs)
	}
	return nil
}

func printSummary(out io.Writer, m *config.Matrix, specs map[string]emulator.Spec) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	Printer.Fprintln(w, "FAMILY\tARCH\tTOOLCHAINS\tFLAG SETS\tEMULATOR\tSTATIC")
	for _, f := range m.Families {
		static := "no"
		if f.Static {
			static = "yes"
		}
		Printer.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			f.Name, f.Arch, strings.Join(m.FamilyToolchains(f), ","), len(f.ArchFlags), f.Emulator, static)
	}
	Printer.Fprintln(w)
	w.Flush()

	Printer.Fprintln(w, "EMULATOR\tPATH\tSOURCE\tOPTIONS")
	for _, e := range m.Emulators {
		spec := specs[e.Name]
		Printer.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, dash(spec.Path), spec.Source, dash(spec.Options))
	}
	Printer.Fprintln(w)
	w.Flush()

	Printer.Fprintln(w, "TEST\tLOG\tARGS")
	for _, t := range m.Tests {
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = fmt.Sprintf("%q", a)
		}
		Printer.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.Log, dash(strings.Join(args, " ")))
	}
	w.Flush()
}
