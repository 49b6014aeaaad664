package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a matrix definition validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks a definition for structural problems.
func Validate(m *Matrix) ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if err := validateSchemaVersion(m.SchemaVersion); err != nil {
		add("schema_version", "%v", err)
	}
	if len(m.Toolchains) == 0 {
		add("toolchains", "at least one toolchain is required")
	}
	for i, tc := range m.Toolchains {
		if strings.TrimSpace(tc) == "" {
			add(fmt.Sprintf("toolchains[%d]", i), "toolchain must not be empty")
		}
	}
	if len(m.Optimization) == 0 {
		add("optimization", "at least one optimization flag set is required")
	}
	if m.Iterations <= 0 {
		add("iterations", "must be positive, got %d", m.Iterations)
	}
	if m.TaskMemoryGiB <= 0 {
		add("task_memory_gib", "must be positive, got %d", m.TaskMemoryGiB)
	}

	emulators := make(map[string]bool, len(m.Emulators))
	for _, e := range m.Emulators {
		field := fmt.Sprintf("emulator.%s", e.Name)
		if emulators[e.Name] {
			add(field, "duplicate emulator")
		}
		emulators[e.Name] = true
		if e.Path == "" && e.Env == "" {
			add(field, "needs a path or an env variable")
		}
	}

	if len(m.Families) == 0 {
		add("family", "at least one architecture family is required")
	}
	families := make(map[string]bool, len(m.Families))
	for _, f := range m.Families {
		field := fmt.Sprintf("family.%s", f.Name)
		if families[f.Name] {
			add(field, "duplicate family")
		}
		families[f.Name] = true
		if f.Arch == "" {
			add(field+".arch", "must not be empty")
		}
		if len(f.ArchFlags) == 0 {
			add(field+".arch_flags", "at least one flag set is required (use \"\" for the baseline)")
		}
		for _, flags := range f.ArchFlags {
			for _, tok := range strings.Fields(flags) {
				if !strings.HasPrefix(tok, "-m") {
					add(field+".arch_flags", "token %q is not an -m/-march flag", tok)
				}
			}
		}
		if !emulators[f.Emulator] {
			add(field+".emulator", "unknown emulator %q", f.Emulator)
		}
	}

	tests := make(map[string]bool, len(m.Tests))
	logs := make(map[string]bool, len(m.Tests))
	for _, t := range m.Tests {
		field := fmt.Sprintf("test.%s", t.Name)
		if strings.TrimSpace(t.Name) == "" {
			add("test", "test binary name must not be empty")
		}
		if tests[t.Name] {
			add(field, "duplicate test binary")
		}
		tests[t.Name] = true
		if t.Log == "" || t.Log == "compile" {
			add(field+".log", "log suffix must be set and must not be \"compile\"")
		}
		if logs[t.Log] {
			add(field+".log", "log suffix %q used twice", t.Log)
		}
		logs[t.Log] = true
	}

	return errs
}
