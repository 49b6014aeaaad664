package runctx

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/vecmatrix/internal/clock"
	"grimm.is/vecmatrix/internal/emulator"
	"grimm.is/vecmatrix/internal/features"
)

func TestNew(t *testing.T) {
	mc := clock.NewMockClock(time.Date(2026, 10, 17, 9, 5, 3, 0, time.UTC))
	defer clock.SetDefault(mc)()

	emus := map[string]emulator.Spec{"sde": {Name: "sde", Path: "/opt/sde/sde64", Source: emulator.SourceFlag}}
	c, err := New(Options{
		Hostname:   "buildhost",
		LogRoot:    "/var/log/vecmatrix",
		TempDir:    "/tmp",
		Seed:       7,
		Iterations: 10000,
		Features:   features.NewHostFeatureSet("sse2"),
		Emulators:  emus,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/var/log/vecmatrix", "autotest_buildhost_2026-10-17_09-05-03"), c.LogDir())
	assert.Equal(t, filepath.Join("/tmp", "vecmatrix_autotest_2026-10-17_09-05-03"), c.BuildRoot())
	assert.Equal(t, runtime.GOARCH, c.HostArch())
	assert.Equal(t, uint64(7), c.Seed())
	assert.Equal(t, 10000, c.Iterations())
	assert.True(t, c.Features().Supports("sse2"))

	_, err = uuid.Parse(c.RunID())
	assert.NoError(t, err, "generated run IDs are UUIDs")

	mc.Advance(90 * time.Second)
	assert.Equal(t, 90*time.Second, c.Elapsed())
}

func TestEmulatorsAreCopied(t *testing.T) {
	emus := map[string]emulator.Spec{"sde": {Name: "sde", Path: "/a"}}
	c, err := New(Options{RunID: "r", Hostname: "h", Emulators: emus})
	require.NoError(t, err)

	emus["sde"] = emulator.Spec{Name: "sde", Path: "/b"}
	got := c.Emulators()
	assert.Equal(t, "/a", got["sde"].Path)

	got["sde"] = emulator.Spec{Name: "sde", Path: "/c"}
	assert.Equal(t, "/a", c.Emulators()["sde"].Path)
}
