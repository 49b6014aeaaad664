// Package scheduler runs a batch of independent jobs on a fixed-size worker
// pool and joins them.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"grimm.is/vecmatrix/internal/clock"
	"grimm.is/vecmatrix/internal/logging"
)

// JobFunc performs one unit of work. Its error is recorded, never propagated
// to other jobs.
type JobFunc func(ctx context.Context) error

// Job is a unit of work submitted to the pool.
type Job struct {
	ID   string
	Name string
	Func JobFunc
}

// JobStatus is the completion record of a job.
type JobStatus struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	// Seq is the completion order, starting at 1.
	Seq int `json:"seq"`
}

// Failed reports whether the job returned an error.
func (s JobStatus) Failed() bool {
	return s.Error != ""
}

// Pool runs jobs with bounded concurrency.
type Pool struct {
	workers int
	logger  *slog.Logger

	// OnComplete, when set, is called once per job after it finishes. Calls
	// are serialized.
	OnComplete func(JobStatus)

	mu       sync.Mutex
	statuses []JobStatus
}

// New creates a pool of the given size. A size below one is treated as one.
func New(workers int, logger *logging.Logger) *Pool {
	var l *slog.Logger
	if logger == nil {
		l = slog.Default()
	} else {
		l = logger.Logger
	}

	return &Pool{
		workers: max(workers, 1),
		logger:  l.With(logging.KeyComponent, "scheduler"),
	}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// Run submits jobs in the given order and returns once every job has
// finished, with exactly one status per job in completion order.
func (p *Pool) Run(ctx context.Context, jobs []Job) []JobStatus {
	p.mu.Lock()
	p.statuses = make([]JobStatus, 0, len(jobs))
	p.mu.Unlock()

	p.logger.Info("pool started", "jobs", len(jobs), "workers", p.workers)
	start := clock.Now()

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, job := range jobs {
		g.Go(func() error {
			p.execute(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Info("pool finished", "jobs", len(p.statuses), "elapsed", clock.Since(start).Round(time.Millisecond))
	return append([]JobStatus(nil), p.statuses...)
}

// Statuses returns the records collected so far.
func (p *Pool) Statuses() []JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]JobStatus(nil), p.statuses...)
}

func (p *Pool) execute(ctx context.Context, job Job) {
	status := JobStatus{ID: job.ID, Name: job.Name, Started: clock.Now()}

	var err error
	if job.Func == nil {
		err = fmt.Errorf("job %s has no function", job.ID)
	} else {
		p.logger.Debug("executing job", "id", job.ID, "name", job.Name)
		err = p.call(ctx, job)
	}

	status.Duration = clock.Since(status.Started)
	if err != nil {
		status.Error = err.Error()
		p.logger.Warn("job failed", "id", job.ID, "error", err, "duration", status.Duration)
	} else {
		p.logger.Debug("job completed", "id", job.ID, "duration", status.Duration)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	status.Seq = len(p.statuses) + 1
	p.statuses = append(p.statuses, status)
	if p.OnComplete != nil {
		p.OnComplete(status)
	}
}

// call runs the job, turning a panic into an error so one broken job cannot
// take down the batch.
func (p *Pool) call(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()
	return job.Func(ctx)
}
