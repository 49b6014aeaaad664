// Package resources sizes the worker pool from the host's core count and
// physical memory.
package resources

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/procfs"
)

// DefaultMountPoint is where procfs is read from.
const DefaultMountPoint = procfs.DefaultMountPoint

// ErrNoMemInfo is returned when MemTotal cannot be determined.
var ErrNoMemInfo = errors.New("total memory unavailable")

// Budget is the number of concurrent build-and-test jobs the host can take.
type Budget struct {
	Workers       int
	CoreBound     int
	MemoryBound   int
	Cores         int
	MemoryBytes   uint64
	PerTaskBytes  uint64
	MemoryLimited bool
}

// Plan returns min(cores, floor(mem/perTask)), never less than one worker.
func Plan(cores int, memBytes, perTaskBytes uint64) Budget {
	b := Budget{
		Cores:        cores,
		MemoryBytes:  memBytes,
		PerTaskBytes: perTaskBytes,
		CoreBound:    max(cores, 1),
	}

	if perTaskBytes == 0 {
		b.MemoryBound = b.CoreBound
	} else {
		b.MemoryBound = int(memBytes / perTaskBytes)
	}

	b.Workers = max(min(b.CoreBound, b.MemoryBound), 1)
	b.MemoryLimited = b.MemoryBound < b.CoreBound
	return b
}

// WithWorkers returns a copy with the worker count forced to n, used by the
// -workers override. n <= 0 leaves the budget unchanged.
func (b Budget) WithWorkers(n int) Budget {
	if n > 0 {
		b.Workers = n
	}
	return b
}

func (b Budget) String() string {
	s := fmt.Sprintf("%d workers (%d cores, %s memory, %s per task)",
		b.Workers, b.Cores, humanize.IBytes(b.MemoryBytes), humanize.IBytes(b.PerTaskBytes))
	if b.MemoryLimited {
		s += ", limited by memory"
	}
	return s
}

// Host is the probed core count and physical memory.
type Host struct {
	Cores       int
	MemoryBytes uint64
}

// Probe reads the logical core count and MemTotal from procfs mounted at
// mountPoint.
func Probe(mountPoint string) (Host, error) {
	h := Host{Cores: runtime.NumCPU()}

	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return h, fmt.Errorf("open procfs: %w", err)
	}
	mi, err := fs.Meminfo()
	if err != nil {
		return h, fmt.Errorf("read meminfo: %w", err)
	}
	if mi.MemTotal == nil {
		return h, ErrNoMemInfo
	}
	// meminfo reports kB.
	h.MemoryBytes = *mi.MemTotal * 1024
	return h, nil
}
