package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validMatrix() *Matrix {
	m := &Matrix{
		Toolchains:   []string{"g++"},
		Optimization: []string{"-O2"},
		Families: []Family{
			{Name: "x86", Arch: "amd64", ArchFlags: []string{"-mavx2"}, Emulator: "sde"},
		},
		Emulators: []Emulator{{Name: "sde", Path: "/opt/sde"}},
		Tests:     []TestBinary{{Name: "simdvecautotest0", Log: "test0"}},
	}
	m.applyDefaults()
	return m
}

func TestValidate_Valid(t *testing.T) {
	assert.False(t, Validate(validMatrix()).HasErrors())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Matrix)
		field  string
	}{
		{"no toolchains", func(m *Matrix) { m.Toolchains = nil }, "toolchains"},
		{"empty toolchain", func(m *Matrix) { m.Toolchains = []string{" "} }, "toolchains[0]"},
		{"no optimization", func(m *Matrix) { m.Optimization = nil }, "optimization"},
		{"negative iterations", func(m *Matrix) { m.Iterations = -1 }, "iterations"},
		{"zero memory", func(m *Matrix) { m.TaskMemoryGiB = -2 }, "task_memory_gib"},
		{"no families", func(m *Matrix) { m.Families = nil }, "family"},
		{"duplicate family", func(m *Matrix) { m.Families = append(m.Families, m.Families[0]) }, "family.x86"},
		{"unknown emulator", func(m *Matrix) { m.Families[0].Emulator = "qemu" }, "family.x86.emulator"},
		{"non -m flag", func(m *Matrix) { m.Families[0].ArchFlags = []string{"-O3"} }, "family.x86.arch_flags"},
		{"missing arch", func(m *Matrix) { m.Families[0].Arch = "" }, "family.x86.arch"},
		{"emulator without path", func(m *Matrix) { m.Emulators[0].Path = "" }, "emulator.sde"},
		{"compile log suffix", func(m *Matrix) { m.Tests[0].Log = "compile" }, "test.simdvecautotest0.log"},
		{"duplicate log suffix", func(m *Matrix) {
			m.Tests = append(m.Tests, TestBinary{Name: "other", Log: "test0"})
		}, "test.other.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMatrix()
			tt.mutate(m)
			errs := Validate(m)
			if assert.True(t, errs.HasErrors()) {
				assert.True(t, strings.Contains(errs.Error(), tt.field+":"), "errors %q should mention %s", errs.Error(), tt.field)
			}
		})
	}
}

func TestValidate_BaselineFlagsAllowed(t *testing.T) {
	m := validMatrix()
	m.Families[0].ArchFlags = []string{"", "-march=x86-64-v3"}
	assert.False(t, Validate(m).HasErrors())
}
