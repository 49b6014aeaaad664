package matrix

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/vecmatrix/internal/config"
)

// stubResolver emulates any flag set containing "512" and every foreign family.
type stubResolver struct{}

func (stubResolver) Resolve(f config.Family, arch string) string {
	if f.Arch != "amd64" || strings.Contains(arch, "512") {
		return "/emu/" + f.Emulator + " --"
	}
	return ""
}

func testMatrix(t *testing.T) *config.Matrix {
	t.Helper()
	m, err := config.Default()
	require.NoError(t, err)
	return m
}

func TestGenerate_Default(t *testing.T) {
	m := testMatrix(t)
	configs := Generate(m, stubResolver{})

	// x86: 2 toolchains * 2 opt * 14 arch * 2 std; armv7: 1*2*1*2; aarch64: 1*2*2*2
	// plus one sandbox per distinct toolchain (4).
	assert.Len(t, configs, 112+4+8+4)

	sandboxes := 0
	for _, c := range configs {
		if c.Sandbox {
			sandboxes++
			assert.Empty(t, c.ArchFlags, "sandbox carries no arch flags")
			assert.Empty(t, c.Emulator, "sandbox is never emulated")
			assert.False(t, c.Static)
			assert.Equal(t, "-O0", c.OptFlags)
			assert.Equal(t, "-DSIMDVEC_SANDBOX", c.Defines)
			continue
		}
		switch c.Family {
		case "x86":
			assert.False(t, c.Static)
			assert.Equal(t, strings.Contains(c.ArchFlags, "512"), c.Emulated(), c.String())
			assert.True(t, strings.HasPrefix(c.ArchFlags, "-m"))
		case "armv7", "aarch64":
			assert.True(t, c.Static, "cross families link statically")
			assert.True(t, c.Emulated(), "foreign families are always emulated")
			assert.True(t, strings.HasPrefix(c.ArchFlags, "-march="), "no x86 flags leak into %s", c.Family)
		}
	}
	assert.Equal(t, len(Toolchains(configs)), sandboxes, "exactly one sandbox per toolchain")
}

func TestGenerate_Deterministic(t *testing.T) {
	m := testMatrix(t)
	assert.Equal(t, Generate(m, stubResolver{}), Generate(m, stubResolver{}))
}

func TestKey_WhitespaceInsensitive(t *testing.T) {
	a := TestConfig{Family: "x86", Toolchain: "g++", OptFlags: "-O3 -funroll-loops", ArchFlags: "-mavx512bw  -mavx512dq"}
	b := TestConfig{Family: "x86", Toolchain: "g++", OptFlags: " -O3\t-funroll-loops ", ArchFlags: "-mavx512bw -mavx512dq"}
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.Slug(), b.Slug())

	c := b
	c.Static = true
	assert.NotEqual(t, a.Key(), c.Key())
	assert.NotEqual(t, a.Slug(), c.Slug())
}

func TestSlug(t *testing.T) {
	c := TestConfig{Toolchain: "clang++", OptFlags: "-O3 -funroll-loops", ArchFlags: "-mavx512bw -mavx512dq", StdFlags: "-std=c++17"}
	slug := c.Slug()
	assert.True(t, strings.HasPrefix(slug, "clang++_-O3-funroll-loops_-mavx512bw-mavx512dq_-std-c++17_"), slug)
	assert.NotContains(t, slug, " ")
	assert.NotContains(t, slug, "/")
	assert.NotContains(t, slug, "=", "emulator wrappers such as env treat = as an assignment")

	sandbox := TestConfig{Toolchain: "g++", OptFlags: "-O0", Defines: "-DSIMDVEC_SANDBOX", Sandbox: true}
	assert.True(t, strings.HasPrefix(sandbox.Slug(), "g++_-O0_-DSIMDVEC_SANDBOX_"), sandbox.Slug())
}

func TestSlug_UniqueAcrossDefault(t *testing.T) {
	configs := Dedup(Generate(testMatrix(t), stubResolver{}))
	slugs := make(map[string]bool)
	for _, c := range configs {
		require.False(t, slugs[c.Slug()], "duplicate slug %s", c.Slug())
		slugs[c.Slug()] = true
	}
}

func keys(configs []TestConfig) []string {
	out := make([]string, len(configs))
	for i, c := range configs {
		out[i] = c.Key()
	}
	sort.Strings(out)
	return out
}

func TestDedup(t *testing.T) {
	base := TestConfig{Family: "x86", Toolchain: "g++", OptFlags: "-O2", ArchFlags: "-mavx2"}
	spaced := base
	spaced.ArchFlags = " -mavx2 "
	other := base
	other.ArchFlags = "-msse2"

	out := Dedup([]TestConfig{base, other, spaced})
	require.Len(t, out, 2)
	assert.Equal(t, " -mavx2 ", out[0].ArchFlags, "last seen wins, first position kept")
	assert.Equal(t, "-msse2", out[1].ArchFlags)
}

func TestDedup_IdempotentAndOrderIndependent(t *testing.T) {
	configs := Generate(testMatrix(t), stubResolver{})
	doubled := append(append([]TestConfig(nil), configs...), configs...)

	once := Dedup(doubled)
	assert.Equal(t, once, Dedup(once), "idempotent")
	assert.Len(t, once, len(configs))

	for seed := uint64(1); seed <= 5; seed++ {
		shuffled := Shuffle(doubled, seed)
		assert.Equal(t, keys(once), keys(Dedup(shuffled)), "seed %d", seed)
	}
}

func TestShuffle(t *testing.T) {
	configs := Generate(testMatrix(t), stubResolver{})

	a := Shuffle(configs, 42)
	b := Shuffle(configs, 42)
	assert.Equal(t, a, b, "same seed, same order")
	assert.Equal(t, keys(configs), keys(a), "shuffle is a permutation")
	assert.NotEqual(t, configs, a)
	assert.Equal(t, Generate(testMatrix(t), stubResolver{}), configs, "input untouched")
}

func TestFilterAvailable(t *testing.T) {
	configs := Generate(testMatrix(t), stubResolver{})
	lookup := func(name string) (string, error) {
		if name == "g++" || name == "clang++" {
			return "/usr/bin/" + name, nil
		}
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}

	var asked []string
	res, err := FilterAvailable(configs, lookup, func(tc string) bool {
		asked = append(asked, tc)
		return true
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"arm-linux-gnueabihf-g++", "aarch64-linux-gnu-g++"}, asked)
	assert.Equal(t, asked, res.Missing)
	assert.Len(t, res.Configs, 112+2)
	for _, c := range res.Configs {
		assert.Equal(t, "x86", c.Family)
	}
}

func TestFilterAvailable_Declined(t *testing.T) {
	configs := Generate(testMatrix(t), stubResolver{})
	lookup := func(name string) (string, error) {
		if name == "clang++" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	res, err := FilterAvailable(configs, lookup, func(string) bool { return false })
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrToolchainDeclined)
	assert.Contains(t, err.Error(), "clang++")

	_, err = FilterAvailable(configs, lookup, nil)
	assert.ErrorIs(t, err, ErrToolchainDeclined, "no confirmation means no")
}

func TestFilterAvailable_AllPresent(t *testing.T) {
	configs := Generate(testMatrix(t), stubResolver{})
	res, err := FilterAvailable(configs, func(n string) (string, error) { return n, nil }, func(string) bool {
		t.Fatal("confirm must not be called")
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, configs, res.Configs)
	assert.Empty(t, res.Missing)
}
