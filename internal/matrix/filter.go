package matrix

import (
	"errors"
	"fmt"
	"os/exec"

	"grimm.is/vecmatrix/internal/logging"
)

// ErrToolchainDeclined aborts a run when the operator refuses to continue
// without an unavailable toolchain.
var ErrToolchainDeclined = errors.New("operator declined to skip unavailable toolchain")

// LookupFunc locates a toolchain binary.
type LookupFunc func(name string) (string, error)

// ConfirmFunc asks whether configs for a missing toolchain may be dropped.
type ConfirmFunc func(toolchain string) bool

// DefaultLookup searches the executable search path.
var DefaultLookup LookupFunc = exec.LookPath

// FilterResult describes what FilterAvailable kept and dropped.
type FilterResult struct {
	Configs []TestConfig
	// Missing lists the unavailable toolchains whose configs were dropped.
	Missing []string
}

// FilterAvailable probes every distinct toolchain once. For each missing one
// confirm decides: true drops all its configs, false aborts with
// ErrToolchainDeclined.
func FilterAvailable(configs []TestConfig, lookup LookupFunc, confirm ConfirmFunc) (*FilterResult, error) {
	if lookup == nil {
		lookup = DefaultLookup
	}
	logger := logging.WithComponent("toolchains")

	missing := make(map[string]bool)
	result := &FilterResult{}
	for _, tc := range Toolchains(configs) {
		path, err := lookup(tc)
		if err == nil {
			logger.Debug("toolchain found", "toolchain", tc, "path", path)
			continue
		}
		logger.Warn("toolchain not found", "toolchain", tc, "error", err)
		if confirm == nil || !confirm(tc) {
			return nil, fmt.Errorf("%w: %s", ErrToolchainDeclined, tc)
		}
		missing[tc] = true
		result.Missing = append(result.Missing, tc)
	}

	for _, c := range configs {
		if !missing[c.Toolchain] {
			result.Configs = append(result.Configs, c)
		}
	}
	if len(result.Missing) > 0 {
		logger.Warn("skipping configs for unavailable toolchains",
			"toolchains", result.Missing,
			"dropped", len(configs)-len(result.Configs))
	}
	return result, nil
}
