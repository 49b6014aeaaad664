// Package matrix generates, filters and deduplicates test configurations.
package matrix

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// TestConfig is one fully specified combination to build and test.
// It is a value: treat it as immutable once generated.
type TestConfig struct {
	Family    string
	Toolchain string
	OptFlags  string
	ArchFlags string
	StdFlags  string
	// Defines holds preprocessor-define flags, e.g. -DSIMDVEC_SANDBOX.
	Defines string
	// Sandbox configs are build-only and carry no arch flags or emulator.
	Sandbox bool
	// Emulator is the command prefix used to run tests; empty runs natively.
	Emulator string
	// Static requests static linking (cross-architecture user-mode emulation).
	Static bool
}

// Emulated reports whether tests for this config run under an emulator.
func (c TestConfig) Emulated() bool {
	return c.Emulator != ""
}

// collapse normalizes whitespace so "-O3  -funroll-loops" equals "-O3 -funroll-loops".
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// keySep cannot appear in flags read from a definition file.
const keySep = "\x1f"

// Key returns the canonical identity of the config. Two configs are
// duplicates iff their keys are equal.
func (c TestConfig) Key() string {
	return strings.Join([]string{
		collapse(c.Family),
		collapse(c.Toolchain),
		collapse(c.OptFlags),
		collapse(c.ArchFlags),
		collapse(c.StdFlags),
		collapse(c.Defines),
		strconv.FormatBool(c.Sandbox),
		collapse(c.Emulator),
		strconv.FormatBool(c.Static),
	}, keySep)
}

var slugReplacer = strings.NewReplacer(" ", "", "/", "-", "\\", "-", ":", "-", "=", "-", "\t", "")

// Slug returns a filesystem-safe name for build directories and log files.
// The trailing hash of Key keeps slugs unique where display forms collide.
func (c TestConfig) Slug() string {
	parts := []string{c.Toolchain, c.OptFlags}
	for _, p := range []string{c.ArchFlags, c.StdFlags, c.Defines} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	for i, p := range parts {
		parts[i] = slugReplacer.Replace(p)
	}

	h := fnv.New32a()
	h.Write([]byte(c.Key()))
	return fmt.Sprintf("%s_%08x", strings.Join(parts, "_"), h.Sum32())
}

// String returns a human-readable description for logs.
func (c TestConfig) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", c.Family, c.Toolchain, collapse(c.OptFlags))
	if c.ArchFlags != "" {
		fmt.Fprintf(&b, " %s", collapse(c.ArchFlags))
	}
	if c.StdFlags != "" {
		fmt.Fprintf(&b, " %s", collapse(c.StdFlags))
	}
	if c.Sandbox {
		b.WriteString(" (sandbox)")
	}
	if c.Static {
		b.WriteString(" (static)")
	}
	if c.Emulated() {
		b.WriteString(" (emulated)")
	}
	return b.String()
}
