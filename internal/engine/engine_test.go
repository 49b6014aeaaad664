package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/vecmatrix/internal/builder"
	"grimm.is/vecmatrix/internal/config"
	"grimm.is/vecmatrix/internal/emulator"
	"grimm.is/vecmatrix/internal/features"
	"grimm.is/vecmatrix/internal/history"
	"grimm.is/vecmatrix/internal/logging"
	"grimm.is/vecmatrix/internal/matrix"
	"grimm.is/vecmatrix/internal/report"
	"grimm.is/vecmatrix/internal/resources"
	"grimm.is/vecmatrix/internal/runctx"
)

const gib = uint64(1) << 30

// fakeBuild warns on every build and fails the multi-operand test whenever
// it runs under an emulator.
type fakeBuild struct {
	mu    sync.Mutex
	built []string
}

func (f *fakeBuild) Clean(ctx context.Context, dir string, out io.Writer) error {
	fmt.Fprintln(out, "rm -f objects")
	return nil
}

func (f *fakeBuild) Build(ctx context.Context, dir string, p builder.BuildParams, out io.Writer) error {
	f.mu.Lock()
	f.built = append(f.built, p.Compiler+" "+p.ArchFlags)
	f.mu.Unlock()
	fmt.Fprintln(out, "cc1plus: warning: command-line option is valid for C only")
	return nil
}

func (f *fakeBuild) RunTest(ctx context.Context, dir, binary string, args []string, emulator string, out io.Writer) (int, error) {
	fmt.Fprintf(out, "%s %s\n", binary, strings.Join(args, " "))
	if emulator != "" && binary == "simdvecautotestM" {
		return 1, nil
	}
	return 0, nil
}

func noEnv(string) (string, bool) { return "", false }

func smallMatrix(t *testing.T) *config.Matrix {
	t.Helper()
	m, err := config.Default()
	require.NoError(t, err)
	m.Families = m.Families[:1]
	m.Families[0].ArchFlags = []string{"-msse2", "-mavx512f"}
	m.Optimization = []string{"-O2"}
	m.Standards = []string{"-std=c++17"}
	return m
}

func newRun(t *testing.T, m *config.Matrix) *runctx.Context {
	t.Helper()
	run, err := runctx.New(runctx.Options{
		RunID:      "run-1",
		Hostname:   "testhost",
		HostArch:   "amd64",
		LogRoot:    t.TempDir(),
		TempDir:    t.TempDir(),
		Seed:       3,
		Iterations: 10,
		Features:   features.NewHostFeatureSet("sse2", "sse3"),
		Emulators:  emulator.ResolvePaths(m, nil, noEnv),
	})
	require.NoError(t, err)
	return run
}

func found(string) (string, error) { return "/usr/bin/cc", nil }

func always(string) bool { return true }

func TestPrepare_Default(t *testing.T) {
	m, err := config.Default()
	require.NoError(t, err)

	e := New(Options{
		Matrix: m,
		Run:    newRun(t, m),
		Lookup: func(tc string) (string, error) {
			if strings.Contains(tc, "linux-gnu") {
				return "", errors.New("not found")
			}
			return "/usr/bin/" + tc, nil
		},
		Confirm: always,
		Exists:  always,
		Host:    resources.Host{Cores: 8, MemoryBytes: 40 * gib},
		Logger:  logging.Discard(),
	})

	plan, err := e.Prepare()
	require.NoError(t, err)
	assert.Equal(t, 128, plan.Generated)
	assert.Equal(t, 114, plan.Available)
	assert.Len(t, plan.Configs, 114)
	assert.ElementsMatch(t, []string{"arm-linux-gnueabihf-g++", "aarch64-linux-gnu-g++"}, plan.MissingToolchains)
	assert.Equal(t, []string{"sde"}, plan.Emulators)
	assert.Equal(t, 2, plan.Budget.Workers)
	assert.True(t, plan.Budget.MemoryLimited)
}

func TestPrepare_WorkersOverride(t *testing.T) {
	m := smallMatrix(t)
	e := New(Options{
		Matrix: m, Run: newRun(t, m), Lookup: found, Exists: always,
		Host:    resources.Host{Cores: 8, MemoryBytes: 40 * gib},
		Workers: 5,
		Logger:  logging.Discard(),
	})
	plan, err := e.Prepare()
	require.NoError(t, err)
	assert.Equal(t, 5, plan.Budget.Workers)
}

func TestPrepare_Preconditions(t *testing.T) {
	m := smallMatrix(t)

	t.Run("missing emulator", func(t *testing.T) {
		run := newRun(t, m)
		e := New(Options{
			Matrix: m, Run: run, Lookup: found,
			Exists: func(string) bool { return false },
			Logger: logging.Discard(),
		})
		_, err := e.Prepare()
		require.Error(t, err)
		assert.ErrorIs(t, err, emulator.ErrEmulatorUnavailable)
		assert.NoDirExists(t, run.LogDir(), "nothing is written before preconditions pass")
	})

	t.Run("declined toolchain", func(t *testing.T) {
		e := New(Options{
			Matrix:  m,
			Run:     newRun(t, m),
			Lookup:  func(string) (string, error) { return "", errors.New("not found") },
			Confirm: func(string) bool { return false },
			Exists:  always,
			Logger:  logging.Discard(),
		})
		_, err := e.Prepare()
		assert.ErrorIs(t, err, matrix.ErrToolchainDeclined)
	})
}

func TestExecute(t *testing.T) {
	m := smallMatrix(t)
	run := newRun(t, m)
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	fake := &fakeBuild{}
	var progress []int
	e := New(Options{
		Matrix:       m,
		Run:          run,
		Collaborator: fake,
		Lookup:       found,
		Exists:       always,
		Host:         resources.Host{Cores: 4, MemoryBytes: 64 * gib},
		History:      store,
		OnComplete: func(done, total int, res builder.JobResult) {
			assert.Equal(t, 6, total)
			assert.Equal(t, builder.StateDone, res.State)
			progress = append(progress, done)
		},
		Logger: logging.Discard(),
	})

	plan, err := e.Prepare()
	require.NoError(t, err)
	// 2 sandbox + 2 toolchains x 1 opt x 2 arch x 1 std.
	require.Len(t, plan.Configs, 6)

	out, err := e.Execute(context.Background(), plan)
	require.NoError(t, err)

	assert.Len(t, out.Results, 6)
	assert.Len(t, out.Statuses, 6)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, progress)
	assert.Len(t, fake.built, 6)

	// Only the avx512f configs are emulated, and each fails one binary.
	assert.Equal(t, 2, out.FailedJobs)
	assert.Equal(t, 2, out.Report.Errors)
	assert.Equal(t, 6, out.Report.Warnings)

	for _, res := range out.Results {
		if res.Config.Sandbox {
			assert.Empty(t, res.Tests)
			continue
		}
		require.Len(t, res.Tests, 4)
	}

	assert.NoDirExists(t, run.BuildRoot())
	assert.FileExists(t, filepath.Join(run.LogDir(), report.ErrorsFile))
	assert.FileExists(t, out.MetricsPath)

	summary, err := report.LoadSummary(run.LogDir())
	require.NoError(t, err)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 6, summary.Jobs)
	assert.Equal(t, 2, summary.FailedJobs)
	assert.Equal(t, uint64(3), summary.Seed)

	test0 := filepath.Join(run.LogDir(), plan.Configs[1].Slug()+"_test0.log")
	data, err := os.ReadFile(test0)
	require.NoError(t, err)
	assert.Equal(t, "simdvecautotest0  10\n", string(data), "iterations come from the run context")

	runs, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 6, runs[0].Jobs)
	assert.Equal(t, 2, runs[0].FailedJobs)
	jobs, err := store.Jobs("run-1")
	require.NoError(t, err)
	assert.Len(t, jobs, 6)
}

func TestExecute_ShuffleIsSeeded(t *testing.T) {
	m := smallMatrix(t)
	order := func() []string {
		run := newRun(t, m)
		d := builder.NewDryRunCollaborator()
		e := New(Options{Matrix: m, Run: run, Collaborator: d, Lookup: found, Exists: always,
			Host: resources.Host{Cores: 1, MemoryBytes: 64 * gib}, Logger: logging.Discard()})
		plan, err := e.Prepare()
		require.NoError(t, err)
		out, err := e.Execute(context.Background(), plan)
		require.NoError(t, err)
		var ids []string
		for _, s := range out.Statuses {
			ids = append(ids, s.ID)
		}
		return ids
	}
	assert.Equal(t, order(), order(), "one worker and the same seed give the same order")
}
