// Package brand provides centralized naming constants and default locations.
//
// The brand identity is loaded from brand.json at compile time via go:embed.
package brand

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
)

//go:embed brand.json
var brandJSON []byte

// Brand holds all branding information
type Brand struct {
	Name            string `json:"name"`
	LowerName       string `json:"lowerName"`
	Vendor          string `json:"vendor"`
	Website         string `json:"website"`
	Repository      string `json:"repository"`
	Description     string `json:"description"`
	ConfigEnvPrefix string `json:"configEnvPrefix"`
	DefaultStateDir string `json:"defaultStateDir"`
	DefaultLogDir   string `json:"defaultLogDir"`
	BinaryName      string `json:"binaryName"`
	MatrixFileName  string `json:"matrixFileName"`
	HistoryFileName string `json:"historyFileName"`
	BuildDirPrefix  string `json:"buildDirPrefix"`
	LogDirPrefix    string `json:"logDirPrefix"`
}

var b Brand

func init() {
	if err := json.Unmarshal(brandJSON, &b); err != nil {
		panic("failed to parse brand.json: " + err.Error())
	}

	Name = b.Name
	LowerName = b.LowerName
	Description = b.Description
	ConfigEnvPrefix = b.ConfigEnvPrefix
	DefaultStateDir = b.DefaultStateDir
	DefaultLogDir = b.DefaultLogDir
	BinaryName = b.BinaryName
	MatrixFileName = b.MatrixFileName
	HistoryFileName = b.HistoryFileName
	BuildDirPrefix = b.BuildDirPrefix
	LogDirPrefix = b.LogDirPrefix
}

var (
	Name            string
	LowerName       string
	Description     string
	ConfigEnvPrefix string
	DefaultStateDir string
	DefaultLogDir   string
	BinaryName      string
	MatrixFileName  string
	HistoryFileName string
	BuildDirPrefix  string
	LogDirPrefix    string

	// Version is set at build time via -ldflags
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Get returns the full Brand struct
func Get() Brand {
	return b
}

// GetStateDir returns the state directory, checking env vars first.
// Priority: VECMATRIX_STATE_DIR > VECMATRIX_PREFIX/state > XDG_STATE_HOME/vecmatrix > DefaultStateDir
func GetStateDir() string {
	if dir := os.Getenv(ConfigEnvPrefix + "_STATE_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(ConfigEnvPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, "state")
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, LowerName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", LowerName)
	}
	return DefaultStateDir
}

// GetLogDir returns the root under which per-run log directories are created.
// Priority: VECMATRIX_LOG_DIR > VECMATRIX_PREFIX/log > DefaultLogDir
func GetLogDir() string {
	if dir := os.Getenv(ConfigEnvPrefix + "_LOG_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(ConfigEnvPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, "log")
	}
	return DefaultLogDir
}

// GetHistoryPath returns the path of the run history database.
func GetHistoryPath() string {
	return filepath.Join(GetStateDir(), HistoryFileName)
}
