// Package config handles the HCL matrix definition: which toolchains,
// optimization levels, language standards and architecture families are
// crossed, which emulator serves each family, and which test binaries run.
//
// # Overview
//
// A definition file looks like:
//
//	toolchains   = ["clang++", "g++"]
//	optimization = ["-O2", "-O3 -funroll-loops"]
//	standards    = ["-std=c++17"]
//
//	family "x86" {
//	  arch       = "amd64"
//	  arch_flags = ["-msse2", "-mavx2"]
//	  emulator   = "sde"
//	}
//
//	emulator "sde" {
//	  path    = "/opt/intel/sde/sde64"
//	  env     = "SDE_PATH"
//	  options = "-align_checker_action ignore -future --"
//	}
//
//	test "simdvecautotest0" {
//	  log  = "test0"
//	  args = [""]
//	}
//
// Expressions can reference host_arch (the Go architecture name of the
// host) and call env("NAME") to read the environment.
//
// When no file is given, [Default] returns the embedded definition.
package config
