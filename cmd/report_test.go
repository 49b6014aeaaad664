package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/vecmatrix/internal/history"
	"grimm.is/vecmatrix/internal/report"
)

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestRunReport_WithoutSummary(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a_compile.log", "ok\nsrc.cpp:1: warning: unused\n")
	writeLog(t, dir, "a_test0.log", "ERROR: simdvecautotest0 failed\n")

	var out bytes.Buffer
	require.NoError(t, RunReport(dir, &out))

	assert.Contains(t, out.String(), "Scanned 2 log files")
	assert.Contains(t, out.String(), "Number of errors")
	assert.FileExists(t, filepath.Join(dir, report.ErrorsFile))
	assert.FileExists(t, filepath.Join(dir, report.WarningsFile))
}

func TestRunReport_RefreshesSummary(t *testing.T) {
	dir := t.TempDir()
	rep, err := report.Aggregate(dir)
	require.NoError(t, err)
	_, err = rep.WriteSummary(rep.Summary("run-1", "builder", time.Now(), time.Minute))
	require.NoError(t, err)

	writeLog(t, dir, "late_test1.log", "Error: mismatch\nerror: again\n")

	var out bytes.Buffer
	require.NoError(t, RunReport(dir, &out))
	assert.Contains(t, out.String(), "run-1")

	s, err := report.LoadSummary(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Errors)
	assert.Equal(t, 0, s.Warnings)
}

func TestRunReport_BadDir(t *testing.T) {
	assert.Error(t, RunReport("", &bytes.Buffer{}))
	assert.Error(t, RunReport(filepath.Join(t.TempDir(), "missing"), &bytes.Buffer{}))

	file := filepath.Join(t.TempDir(), "file.log")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.ErrorContains(t, RunReport(file, &bytes.Buffer{}), "not a directory")
}

func aggregated(t *testing.T, logs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range logs {
		writeLog(t, dir, name, content)
	}
	_, err := report.Aggregate(dir)
	require.NoError(t, err)
	return dir
}

func TestRunDiff_Identical(t *testing.T) {
	logs := map[string]string{"x86_g++_O2_test0.log": "ERROR: simdvecautotest0 failed\n"}
	a, b := aggregated(t, logs), aggregated(t, logs)

	var out bytes.Buffer
	require.NoError(t, RunDiff(a, b, &out))
	assert.Contains(t, out.String(), "No differences")
}

func TestRunDiff_Different(t *testing.T) {
	a := aggregated(t, map[string]string{"x86_g++_O2_test0.log": "ERROR: simdvecautotest0 failed\n"})
	b := aggregated(t, map[string]string{
		"x86_g++_O2_test0.log": "ERROR: simdvecautotest0 failed\n",
		"x86_g++_O3_testM.log": "ERROR: simdvecautotestM failed\n",
	})

	var out bytes.Buffer
	err := RunDiff(a, b, &out)
	assert.ErrorIs(t, err, ErrRunsDiffer)
	assert.Contains(t, out.String(), "+x86_g++_O3_testM.log:1:ERROR: simdvecautotestM failed")
	assert.NotContains(t, out.String(), "-x86_g++_O2_test0.log")
}

func TestRunDiff_NotAggregated(t *testing.T) {
	err := RunDiff(t.TempDir(), t.TempDir(), &bytes.Buffer{})
	assert.ErrorContains(t, err, "report")
}

func TestRunHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	var out bytes.Buffer
	require.NoError(t, RunHistory(path, 5, &out))
	assert.Contains(t, out.String(), "No runs recorded yet.")

	store, err := history.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(history.Run{
		ID:      "4f6c2a1e-0000-0000-0000-000000000000",
		Host:    "buildhost",
		Started: time.Now().Add(-time.Hour),
		Elapsed: 90 * time.Second,
		Jobs:    12,
	}, nil))
	require.NoError(t, store.Close())

	out.Reset()
	require.NoError(t, RunHistory(path, 5, &out))
	assert.Contains(t, out.String(), "buildhost")
	assert.Contains(t, out.String(), "1 hour ago")
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.hcl")

	var out bytes.Buffer
	require.NoError(t, RunInit(path, false, &out))
	assert.Contains(t, out.String(), "Wrote "+path)

	// The written definition is the built-in one and must load.
	require.NoError(t, RunCheck(path, false, &bytes.Buffer{}))

	assert.ErrorContains(t, RunInit(path, false, &out), "already exists")
	assert.NoError(t, RunInit(path, true, &out))
}
