package features

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultCapabilitySource is where the kernel reports CPU features.
const DefaultCapabilitySource = "/proc/cpuinfo"

// ErrProbeUnavailable is returned when the capability source cannot be read
// or holds no feature line. Callers should treat it as "nothing supported".
var ErrProbeUnavailable = errors.New("host capability probe unavailable")

// featureLabels are the labels of the feature line: x86 kernels use "flags",
// ARM kernels use "Features".
var featureLabels = []string{"flags", "features"}

// Probe reads the first feature line from the capability source at path.
func Probe(path string) (HostFeatureSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return HostFeatureSet{}, fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if set, ok := parseFeatureLine(scanner.Text()); ok {
			return set, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return HostFeatureSet{}, fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
	}
	return HostFeatureSet{}, fmt.Errorf("%w: no feature line in %s", ErrProbeUnavailable, path)
}

// ProbeOrEmpty runs Probe and degrades to an empty set on failure, so every
// requested feature resolves to emulation.
func ProbeOrEmpty(path string) (HostFeatureSet, error) {
	set, err := Probe(path)
	if err != nil {
		return NewHostFeatureSet(), err
	}
	return set, nil
}

func parseFeatureLine(line string) (HostFeatureSet, bool) {
	label, value, ok := strings.Cut(line, ":")
	if !ok {
		return HostFeatureSet{}, false
	}
	label = strings.ToLower(strings.TrimSpace(label))
	for _, want := range featureLabels {
		if label == want {
			set := NewHostFeatureSet(strings.Fields(value)...)
			return set, set.Len() > 0
		}
	}
	return HostFeatureSet{}, false
}
