//go:build !linux

package resources

// LowestPriority is the niceness the runner drops to.
const LowestPriority = 19

// LowerPriority is a no-op on this OS.
func LowerPriority() error {
	return nil
}
