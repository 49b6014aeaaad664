package matrix

import (
	"math/rand/v2"

	"grimm.is/vecmatrix/internal/config"
)

// Resolver decides the emulator prefix for a family and arch flag set.
type Resolver interface {
	Resolve(family config.Family, archFlags string) string
}

// Generate enumerates every family's toolchain x optimization x arch flags x
// standard combination, plus one build-only sandbox config per distinct
// toolchain. Families never share arch flag vocabularies.
func Generate(m *config.Matrix, resolver Resolver) []TestConfig {
	var out []TestConfig
	seen := make(map[string]bool)

	for _, family := range m.Families {
		for _, tc := range m.FamilyToolchains(family) {
			if !seen[tc] {
				seen[tc] = true
				out = append(out, TestConfig{
					Family:    family.Name,
					Toolchain: tc,
					OptFlags:  m.Sandbox.Optimization,
					Defines:   m.Sandbox.Defines,
					Sandbox:   true,
				})
			}

			for _, opt := range m.Optimization {
				for _, arch := range family.ArchFlags {
					emu := resolver.Resolve(family, arch)
					for _, std := range m.Standards {
						out = append(out, TestConfig{
							Family:    family.Name,
							Toolchain: tc,
							OptFlags:  opt,
							ArchFlags: arch,
							StdFlags:  std,
							Emulator:  emu,
							Static:    family.Static,
						})
					}
				}
			}
		}
	}
	return out
}

// Toolchains returns the distinct toolchains referenced, in first-seen order.
func Toolchains(configs []TestConfig) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range configs {
		if !seen[c.Toolchain] {
			seen[c.Toolchain] = true
			out = append(out, c.Toolchain)
		}
	}
	return out
}

// Shuffle returns a shuffled copy of configs. Execution order is randomized
// so that shared cache or thermal effects do not correlate with config
// similarity; the seed makes a run's order reproducible.
func Shuffle(configs []TestConfig, seed uint64) []TestConfig {
	out := append([]TestConfig(nil), configs...)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
