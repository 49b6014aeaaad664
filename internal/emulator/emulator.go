// Package emulator decides which configurations need an emulator and checks,
// once per run, that every required emulator exists.
package emulator

import (
	"os"
	"strings"

	"github.com/kballard/go-shellquote"

	"grimm.is/vecmatrix/internal/config"
	"grimm.is/vecmatrix/internal/features"
)

// Source records where an emulator path came from.
type Source string

const (
	SourceFlag   Source = "command line arguments"
	SourceEnv    Source = "environment variables"
	SourceConfig Source = "matrix definition"
)

// Spec is an emulator with its resolved executable path.
type Spec struct {
	Name    string
	Path    string
	Options string
	Env     string
	Source  Source
}

// Prefix is the command prefix placed before a test binary.
func (s Spec) Prefix() string {
	if s.Path == "" {
		return ""
	}
	prefix := shellquote.Join(s.Path)
	if opts := strings.TrimSpace(s.Options); opts != "" {
		prefix += " " + opts
	}
	return prefix
}

// command is Prefix, or the bare emulator name when no path is known. It is
// never empty, so the availability check still sees configs whose emulator
// has no path.
func (s Spec) command() string {
	if p := s.Prefix(); p != "" {
		return p
	}
	return shellquote.Join(s.Name)
}

// ResolvePaths picks each emulator's path by precedence: command-line
// override, then the emulator's environment variable, then the definition.
func ResolvePaths(m *config.Matrix, overrides map[string]string, lookupEnv func(string) (string, bool)) map[string]Spec {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	specs := make(map[string]Spec, len(m.Emulators))
	for _, e := range m.Emulators {
		spec := Spec{Name: e.Name, Path: e.Path, Options: e.Options, Env: e.Env, Source: SourceConfig}
		if e.Env != "" {
			if v, ok := lookupEnv(e.Env); ok && v != "" {
				spec.Path, spec.Source = v, SourceEnv
			}
		}
		if v, ok := overrides[e.Name]; ok && v != "" {
			spec.Path, spec.Source = v, SourceFlag
		}
		specs[e.Name] = spec
	}
	return specs
}

// Resolver maps a family and its arch flags to an emulator prefix.
type Resolver struct {
	hostArch string
	host     features.HostFeatureSet
	specs    map[string]Spec
}

// NewResolver creates a resolver for a host architecture and feature set.
func NewResolver(hostArch string, host features.HostFeatureSet, specs map[string]Spec) *Resolver {
	return &Resolver{hostArch: hostArch, host: host, specs: specs}
}

// Native reports whether a family executes on the host architecture.
func (r *Resolver) Native(family config.Family) bool {
	return family.Arch == r.hostArch
}

// Resolve returns "" to run natively, or the family's emulator prefix.
// Foreign families always translate through their emulator; the host's own
// family is emulated only when a requested feature is missing.
func (r *Resolver) Resolve(family config.Family, archFlags string) string {
	spec := r.specs[family.Emulator]
	if !r.Native(family) {
		return r.prefix(spec)
	}
	if r.host.Compatible(archFlags) {
		return ""
	}
	return r.prefix(spec)
}

func (r *Resolver) prefix(spec Spec) string {
	return spec.command()
}

// Specs returns the resolved emulator table.
func (r *Resolver) Specs() map[string]Spec {
	return r.specs
}
