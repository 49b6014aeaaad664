package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"grimm.is/vecmatrix/cmd"
	"grimm.is/vecmatrix/internal/brand"
	"grimm.is/vecmatrix/internal/i18n"
)

var printer = i18n.NewCLIPrinter()

// emulatorFlag collects repeated -emulator name=path values.
type emulatorFlag map[string]string

func (f emulatorFlag) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (f emulatorFlag) Set(value string) error {
	name, path, ok := strings.Cut(value, "=")
	if !ok || name == "" || path == "" {
		return fmt.Errorf("want name=path, got %q", value)
	}
	f[name] = path
	return nil
}

// matrixFlags registers the flags shared by run and plan.
func matrixFlags(fs *flag.FlagSet, opts *cmd.RunOptions) *uint64 {
	fs.StringVar(&opts.ConfigFile, "config", "", "Matrix definition file (default: ./"+brand.MatrixFileName+" or built-in)")
	fs.StringVar(&opts.ConfigFile, "c", "", "Matrix definition file (short)")
	fs.StringVar(&opts.SDEPath, "sde-path", "", "Path to the Intel SDE executable")
	opts.Emulators = emulatorFlag{}
	fs.Var(emulatorFlag(opts.Emulators), "emulator", "Emulator path override as name=path (repeatable)")
	fs.StringVar(&opts.LogRoot, "log-root", "", "Directory under which the run's log directory is created")
	fs.StringVar(&opts.SourceDir, "C", "", "Directory containing the library Makefile")
	fs.StringVar(&opts.CPUInfo, "cpuinfo", "", "Capability source to probe instead of /proc/cpuinfo")
	fs.IntVar(&opts.Workers, "workers", 0, "Override the planned number of concurrent jobs")
	fs.IntVar(&opts.Iterations, "iterations", 0, "Override the test iteration count")
	fs.BoolVar(&opts.Verbose, "v", false, "Verbose logging")
	return fs.Uint64("seed", 0, "Seed for the submission order (default: random)")
}

func seedSet(fs *flag.FlagSet) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			set = true
		}
	})
	return set
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		var opts cmd.RunOptions
		runFlags := flag.NewFlagSet("run", flag.ExitOnError)
		seed := matrixFlags(runFlags, &opts)
		runFlags.BoolVar(&opts.AssumeYes, "yes", false, "Skip configurations of missing toolchains without asking")
		runFlags.BoolVar(&opts.AssumeYes, "y", false, "Assume yes (short)")
		runFlags.BoolVar(&opts.DryRun, "dry-run", false, "Record build commands instead of running them")
		runFlags.BoolVar(&opts.DryRun, "n", false, "Dry run (short)")
		runFlags.BoolVar(&opts.Progress, "progress", false, "Show a live progress view when attached to a terminal")
		runFlags.BoolVar(&opts.NoHistory, "no-history", false, "Do not record the run in the history database")
		runFlags.Parse(os.Args[2:])
		opts.Seed, opts.SeedSet = *seed, seedSet(runFlags)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := cmd.RunMatrix(ctx, opts)
		stop()
		if err != nil {
			printer.Fprintf(os.Stderr, "Run failed: %v\n", err)
			os.Exit(1)
		}

	case "plan":
		var opts cmd.RunOptions
		planFlags := flag.NewFlagSet("plan", flag.ExitOnError)
		seed := matrixFlags(planFlags, &opts)
		planFlags.Parse(os.Args[2:])
		opts.Seed, opts.SeedSet = *seed, seedSet(planFlags)

		if err := cmd.RunPlan(opts); err != nil {
			printer.Fprintf(os.Stderr, "Plan failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		verbose := checkFlags.Bool("verbose", false, "Verbose output")
		checkFlags.BoolVar(verbose, "v", false, "Verbose output (short)")
		checkFlags.Parse(os.Args[2:])

		configFile := brand.MatrixFileName
		if len(checkFlags.Args()) > 0 {
			configFile = checkFlags.Arg(0)
		}

		if err := cmd.RunCheck(configFile, *verbose, os.Stdout); err != nil {
			printer.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "init":
		initFlags := flag.NewFlagSet("init", flag.ExitOnError)
		force := initFlags.Bool("force", false, "Overwrite an existing file")
		initFlags.Parse(os.Args[2:])

		if err := cmd.RunInit(initFlags.Arg(0), *force, os.Stdout); err != nil {
			printer.Fprintf(os.Stderr, "Init failed: %v\n", err)
			os.Exit(1)
		}

	case "report":
		if err := cmd.RunReport(argAt(2), os.Stdout); err != nil {
			printer.Fprintf(os.Stderr, "Report failed: %v\n", err)
			os.Exit(1)
		}

	case "diff":
		if err := cmd.RunDiff(argAt(2), argAt(3), os.Stdout); err != nil {
			if !errors.Is(err, cmd.ErrRunsDiffer) {
				printer.Fprintf(os.Stderr, "Diff failed: %v\n", err)
			}
			os.Exit(1)
		}

	case "history":
		historyFlags := flag.NewFlagSet("history", flag.ExitOnError)
		limit := historyFlags.Int("n", 10, "Number of runs to show")
		historyFlags.Parse(os.Args[2:])

		if err := cmd.RunHistory(brand.GetHistoryPath(), *limit, os.Stdout); err != nil {
			printer.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}

	case "version", "-version", "--version":
		printer.Printf("%s %s (commit %s, built %s)\n", brand.LowerName, brand.Version, brand.GitCommit, brand.BuildTime)

	case "help", "-h", "--help":
		printUsage()

	default:
		printer.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func argAt(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func printUsage() {
	printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Core Commands:
  run       Build and test every configuration of the matrix
            Options: --config (-c) <file>, --sde-path <path>, --emulator <name=path>,
                     --log-root <dir>, --yes (-y), --dry-run (-n), --seed <n>,
                     --workers <n>, --iterations <n>, --progress, --no-history, -v
  plan      Show the configurations a run would execute, without building

Utility Commands:
  check     Validate a matrix definition file
            Options: --verbose (-v)
  init      Write the built-in matrix definition to %s
            Options: --force
  report    Re-aggregate errors and warnings of a run's log directory
  diff      Compare the errors of two runs
  history   List recent runs
            Options: -n <count>
  version   Print version information

Examples:
  %s run --sde-path /opt/intel/sde/sde64
  %s run --yes --progress
  %s run --emulator qemu-aarch64=/usr/bin/qemu-aarch64-static
  %s plan -c %s
  %s report autotest_buildhost_20260101_120000
  %s diff autotest_a autotest_b
`,
		brand.Name, brand.Description,
		brand.LowerName,
		brand.MatrixFileName,
		brand.LowerName, brand.LowerName, brand.LowerName,
		brand.LowerName, brand.MatrixFileName,
		brand.LowerName, brand.LowerName)
}
