package config

// CurrentSchemaVersion defines the current schema version of the matrix definition.
const CurrentSchemaVersion = "1.0"

// Defaults applied to optional attributes.
const (
	DefaultIterations          = 10000
	DefaultTaskMemoryGiB       = 15
	DefaultSandboxOptimization = "-O0"
	DefaultSandboxDefines      = "-DSIMDVEC_SANDBOX"
	DefaultBuildTool           = "make"
)

// DefaultBuildTargets are the targets that build the library with its tests
// and run the self-check harness.
var DefaultBuildTargets = []string{"all_tsimd", "autotest"}

// Matrix is the top-level structure of a matrix definition.
type Matrix struct {
	SchemaVersion string `hcl:"schema_version,optional"`

	Toolchains   []string `hcl:"toolchains"`
	Optimization []string `hcl:"optimization"`
	Standards    []string `hcl:"standards,optional"`

	// Iterations is appended as the last argument of every test binary.
	Iterations int `hcl:"iterations,optional"`

	// TaskMemoryGiB is the memory reserved per concurrent build+test job.
	TaskMemoryGiB int `hcl:"task_memory_gib,optional"`

	Sandbox   *Sandbox     `hcl:"sandbox,block"`
	Build     *Build       `hcl:"build,block"`
	Families  []Family     `hcl:"family,block"`
	Emulators []Emulator   `hcl:"emulator,block"`
	Tests     []TestBinary `hcl:"test,block"`
}

// Sandbox describes the build-only configuration generated per toolchain.
type Sandbox struct {
	Optimization string `hcl:"optimization,optional"`
	Defines      string `hcl:"defines,optional"`
}

// Build describes how the external build tool is invoked.
type Build struct {
	Tool    string   `hcl:"tool,optional"`
	Targets []string `hcl:"targets,optional"`
}

// Family is one architecture family with its own flag vocabulary.
type Family struct {
	Name string `hcl:"name,label"`

	// Arch is the Go architecture name (amd64, arm64, arm) the family's
	// binaries execute on. A family whose Arch differs from the host's is
	// always emulated.
	Arch string `hcl:"arch"`

	// Toolchains overrides the top-level toolchain list (cross compilers).
	Toolchains []string `hcl:"toolchains,optional"`
	ArchFlags  []string `hcl:"arch_flags"`
	Emulator   string   `hcl:"emulator"`

	// Static requests static linking, needed for user-mode cross emulation.
	Static bool `hcl:"static,optional"`
}

// Emulator is an executable that runs binaries the host cannot.
type Emulator struct {
	Name    string `hcl:"name,label"`
	Path    string `hcl:"path,optional"`
	Env     string `hcl:"env,optional"`
	Options string `hcl:"options,optional"`
}

// TestBinary is one of the fixed test executables produced by the build.
type TestBinary struct {
	Name string `hcl:"name,label"`
	// Log is the log file suffix, e.g. "test0" for <config>_test0.log.
	Log  string   `hcl:"log"`
	Args []string `hcl:"args,optional"`
}

// FamilyToolchains returns the toolchains used by family f.
func (m *Matrix) FamilyToolchains(f Family) []string {
	if len(f.Toolchains) > 0 {
		return f.Toolchains
	}
	return m.Toolchains
}

// Emulator returns the emulator with the given name.
func (m *Matrix) Emulator(name string) (Emulator, bool) {
	for _, e := range m.Emulators {
		if e.Name == name {
			return e, true
		}
	}
	return Emulator{}, false
}

// TaskMemoryBytes returns the per-task memory reservation in bytes.
func (m *Matrix) TaskMemoryBytes() uint64 {
	return uint64(m.TaskMemoryGiB) << 30
}

// applyDefaults fills optional attributes left unset.
func (m *Matrix) applyDefaults() {
	if m.SchemaVersion == "" {
		m.SchemaVersion = CurrentSchemaVersion
	}
	if m.Iterations == 0 {
		m.Iterations = DefaultIterations
	}
	if m.TaskMemoryGiB == 0 {
		m.TaskMemoryGiB = DefaultTaskMemoryGiB
	}
	if len(m.Standards) == 0 {
		m.Standards = []string{""}
	}
	if m.Sandbox == nil {
		m.Sandbox = &Sandbox{}
	}
	if m.Sandbox.Optimization == "" {
		m.Sandbox.Optimization = DefaultSandboxOptimization
	}
	if m.Sandbox.Defines == "" {
		m.Sandbox.Defines = DefaultSandboxDefines
	}
	if m.Build == nil {
		m.Build = &Build{}
	}
	if m.Build.Tool == "" {
		m.Build.Tool = DefaultBuildTool
	}
	if len(m.Build.Targets) == 0 {
		m.Build.Targets = append([]string(nil), DefaultBuildTargets...)
	}
}
