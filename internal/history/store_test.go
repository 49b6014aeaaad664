package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/vecmatrix/internal/builder"
	"grimm.is/vecmatrix/internal/matrix"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		id := uuid.New().String()
		ids = append(ids, id)
		require.NoError(t, s.Record(Run{
			ID:       id,
			Host:     "buildhost",
			Started:  base.Add(time.Duration(i) * time.Hour),
			Elapsed:  time.Duration(i+1) * time.Minute,
			Jobs:     10 * (i + 1),
			Errors:   i,
			Warnings: 2 * i,
			LogDir:   "autotest_buildhost",
		}, nil))
	}

	runs, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID, "newest first")
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, 3*time.Minute, runs[0].Elapsed)
	assert.Equal(t, 30, runs[0].Jobs)
	assert.True(t, base.Add(2*time.Hour).Equal(runs[0].Started))

	all, err := s.Recent(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordJobs(t *testing.T) {
	s := openTestStore(t)
	runID := uuid.New().String()

	pass := builder.JobResult{
		Config:   matrix.TestConfig{Family: "x86", Toolchain: "g++", OptFlags: "-O2", ArchFlags: "-msse2", StdFlags: "-std=c++11"},
		BuildOK:  true,
		Duration: 42 * time.Second,
	}
	fail := builder.JobResult{
		Config:  matrix.TestConfig{Family: "x86", Toolchain: "g++", OptFlags: "-O2", ArchFlags: "-mavx512f", Emulator: "sde"},
		BuildOK: true,
		Tests:   []builder.TestOutcome{{Binary: "simdvecautotest1", ExitCode: 1}},
	}
	sandbox := builder.JobResult{
		Config: matrix.TestConfig{Family: "x86", Toolchain: "clang++", OptFlags: "-O0", Sandbox: true},
	}

	jobs := []Job{JobFromResult(runID, pass), JobFromResult(runID, fail), JobFromResult(runID, sandbox)}
	require.NoError(t, s.Record(Run{ID: runID, Host: "h", Started: time.Now(), Jobs: 3, FailedJobs: 2}, jobs))

	got, err := s.Jobs(runID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	bySlug := make(map[string]Job)
	for _, j := range got {
		bySlug[j.Slug] = j
	}
	p := bySlug[pass.Config.Slug()]
	assert.True(t, p.BuildOK)
	assert.False(t, p.Failed())
	assert.Equal(t, 42*time.Second, p.Duration)
	assert.Equal(t, "-std=c++11", p.Std)

	f := bySlug[fail.Config.Slug()]
	assert.True(t, f.Emulated)
	assert.Equal(t, 1, f.FailedTests)
	assert.True(t, f.Failed())

	sb := bySlug[sandbox.Config.Slug()]
	assert.True(t, sb.Sandbox)
	assert.True(t, sb.Failed())

	none, err := s.Jobs("unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecord_DuplicateRunRollsBack(t *testing.T) {
	s := openTestStore(t)
	run := Run{ID: "fixed", Host: "h", Started: time.Now()}
	require.NoError(t, s.Record(run, nil))

	err := s.Record(run, []Job{{RunID: "fixed", Slug: "x"}})
	assert.Error(t, err)

	jobs, err := s.Jobs("fixed")
	require.NoError(t, err)
	assert.Empty(t, jobs, "failed record must not leave job rows")
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(Run{ID: "a", Host: "h", Started: time.Now()}, nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Recent(5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
