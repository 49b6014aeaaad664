package config

import (
	"fmt"
	"strconv"
	"strings"
)

// SchemaVersion is the X.Y version a matrix definition declares.
type SchemaVersion struct {
	Major int
	Minor int
}

// ParseVersion parses a version string like "1.0". An empty string is the
// current version.
func ParseVersion(s string) (SchemaVersion, error) {
	if s == "" {
		s = CurrentSchemaVersion
	}

	major, minor, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minor, ".") {
		return SchemaVersion{}, fmt.Errorf("invalid version format: %s (expected X.Y)", s)
	}
	ma, err := strconv.Atoi(major)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("invalid major version: %s", major)
	}
	mi, err := strconv.Atoi(minor)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("invalid minor version: %s", minor)
	}
	return SchemaVersion{Major: ma, Minor: mi}, nil
}

func (v SchemaVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Readable reports whether a reader for current understands v. Minor
// increases add optional attributes only; a new major is incompatible.
func (v SchemaVersion) Readable(current SchemaVersion) bool {
	return v.Major == current.Major && v.Minor <= current.Minor
}

func validateSchemaVersion(s string) error {
	v, err := ParseVersion(s)
	if err != nil {
		return err
	}
	current, _ := ParseVersion(CurrentSchemaVersion)
	if !v.Readable(current) {
		return fmt.Errorf("version %s is newer than supported %s", v, current)
	}
	return nil
}
