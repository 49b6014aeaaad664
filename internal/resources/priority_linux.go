//go:build linux

package resources

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// LowestPriority is the niceness the runner drops to.
const LowestPriority = 19

// maxRenicePasses bounds the walk over a thread list the runtime may still
// be growing.
const maxRenicePasses = 8

// LowerPriority renices the whole process so the matrix does not starve
// interactive work on the host. Linux keeps niceness per thread and children
// inherit it from the thread that forks them, so every thread of the process
// is reniced, repeating until a pass finds no new thread.
func LowerPriority() error {
	fs, err := procfs.NewFS(DefaultMountPoint)
	if err != nil {
		return fmt.Errorf("open procfs: %w", err)
	}
	return lowerThreads(fs, os.Getpid(), LowestPriority)
}

func lowerThreads(fs procfs.FS, pid, prio int) error {
	// Threads cloned after this point inherit from the calling thread.
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, prio); err != nil {
		return fmt.Errorf("setpriority: %w", err)
	}

	done := make(map[int]bool)
	for pass := 0; pass < maxRenicePasses; pass++ {
		threads, err := fs.AllThreads(pid)
		if err != nil {
			return fmt.Errorf("list threads: %w", err)
		}
		fresh := 0
		for _, t := range threads {
			if done[t.PID] {
				continue
			}
			done[t.PID] = true
			fresh++
			err := unix.Setpriority(unix.PRIO_PROCESS, t.PID, prio)
			if err != nil && !errors.Is(err, unix.ESRCH) {
				return fmt.Errorf("setpriority thread %d: %w", t.PID, err)
			}
		}
		if fresh == 0 {
			return nil
		}
	}
	return nil
}
