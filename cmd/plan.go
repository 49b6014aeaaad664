package cmd

import (
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"grimm.is/vecmatrix/internal/emulator"
	"grimm.is/vecmatrix/internal/engine"
	"grimm.is/vecmatrix/internal/matrix"
	"grimm.is/vecmatrix/internal/tui"
)

// RunPlan prints the configurations a run would execute and how each one's
// tests are launched, without building anything. Missing toolchains are
// skipped without asking.
func RunPlan(opts RunOptions) error {
	logger := configureLogging(opts.Verbose)

	s, err := newSession(opts, logger)
	if err != nil {
		return err
	}

	eng := engine.New(engine.Options{
		Matrix:       s.matrix,
		Run:          s.run,
		Collaborator: s.collaborator(opts),
		Confirm:      tui.ConfirmSkipToolchain(true, nil),
		Host:         s.host,
		Workers:      opts.Workers,
		Logger:       logger,
	})

	plan, err := eng.Prepare()
	if err != nil {
		printRemediation(os.Stderr, err)
		return err
	}

	writePlan(opts.out(), plan, eng.Resolver().Specs())
	return nil
}

func runMode(cfg matrix.TestConfig) string {
	switch {
	case cfg.Sandbox:
		return "sandbox"
	case cfg.Emulated():
		return "emulated"
	default:
		return "native"
	}
}

// emulatorName maps a config's launch prefix back to the emulator name.
func emulatorName(cfg matrix.TestConfig, specs map[string]emulator.Spec) string {
	if !cfg.Emulated() {
		return "-"
	}
	for name, spec := range specs {
		if p := spec.Prefix(); p != "" && p == cfg.Emulator {
			return name
		}
	}
	return cfg.Emulator
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func writePlan(out io.Writer, plan *engine.Plan, specs map[string]emulator.Spec) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	Printer.Fprintln(w, "FAMILY\tTOOLCHAIN\tOPT\tARCH\tSTD\tMODE\tEMULATOR")
	var emulated, sandboxes int
	for _, cfg := range plan.Configs {
		switch runMode(cfg) {
		case "emulated":
			emulated++
		case "sandbox":
			sandboxes++
		}
		Printer.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			dash(cfg.Family), cfg.Toolchain, dash(cfg.OptFlags), dash(cfg.ArchFlags),
			dash(cfg.StdFlags), runMode(cfg), emulatorName(cfg, specs))
	}
	Printer.Fprintln(w)
	w.Flush()

	Printer.Fprintf(out, "Configurations: %d (%d generated, %d with available toolchains)\n",
		len(plan.Configs), plan.Generated, plan.Available)
	Printer.Fprintf(out, "Emulated: %d, sandbox builds: %d\n", emulated, sandboxes)
	if len(plan.MissingToolchains) > 0 {
		Printer.Fprintf(out, "Skipped toolchains: %s\n", strings.Join(plan.MissingToolchains, ", "))
	}
	if len(plan.Emulators) > 0 {
		Printer.Fprintf(out, "Required emulators: %s\n", strings.Join(plan.Emulators, ", "))
	}
	Printer.Fprintf(out, "Budget: %s\n", plan.Budget)
}
