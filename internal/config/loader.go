package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

//go:embed default.hcl
var defaultHCL []byte

// defaultFilename is the name diagnostics use for the embedded definition.
const defaultFilename = "default.hcl"

// LoadOptions controls how definitions are decoded.
type LoadOptions struct {
	// HostArch is exposed to expressions as host_arch.
	HostArch string

	// LookupEnv backs the env() function.
	LookupEnv func(string) (string, bool)
}

// DefaultLoadOptions returns options describing the running host.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		HostArch:  runtime.GOARCH,
		LookupEnv: os.LookupEnv,
	}
}

// Default returns the embedded default matrix definition.
func Default() (*Matrix, error) {
	return LoadBytes(defaultFilename, defaultHCL, DefaultLoadOptions())
}

// DefaultSource returns the embedded definition text.
func DefaultSource() []byte {
	return append([]byte(nil), defaultHCL...)
}

// LoadFile loads and validates a matrix definition file.
func LoadFile(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix file: %w", err)
	}
	return LoadBytes(path, data, DefaultLoadOptions())
}

// LoadBytes decodes, fills defaults and validates a definition.
func LoadBytes(filename string, data []byte, opts LoadOptions) (*Matrix, error) {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".hcl" && ext != "" {
		return nil, fmt.Errorf("unsupported matrix file extension %q (want .hcl)", ext)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	var m Matrix
	if diags := gohcl.DecodeBody(file.Body, evalContext(opts), &m); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode matrix: %s", diags.Error())
	}

	m.applyDefaults()
	if errs := Validate(&m); errs.HasErrors() {
		return nil, fmt.Errorf("invalid matrix definition %s: %w", filename, errs)
	}
	return &m, nil
}

func evalContext(opts LoadOptions) *hcl.EvalContext {
	hostArch := opts.HostArch
	if hostArch == "" {
		hostArch = runtime.GOARCH
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"host_arch": cty.StringVal(hostArch),
		},
		Functions: map[string]function.Function{
			"env": envFunc(lookup),
		},
	}
}

// envFunc returns env(name), or "" when the variable is unset.
func envFunc(lookup func(string) (string, bool)) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			val, _ := lookup(args[0].AsString())
			return cty.StringVal(val), nil
		},
	})
}
