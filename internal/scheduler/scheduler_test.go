package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"grimm.is/vecmatrix/internal/logging"
)

func sleepJobs(n int, d time.Duration, running, peak *atomic.Int32) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i] = Job{
			ID:   fmt.Sprintf("job-%d", i),
			Name: fmt.Sprintf("Job %d", i),
			Func: func(ctx context.Context) error {
				cur := running.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(d)
				running.Add(-1)
				return nil
			},
		}
	}
	return jobs
}

func TestPool_BoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	p := New(3, logging.Discard())

	statuses := p.Run(context.Background(), sleepJobs(12, 10*time.Millisecond, &running, &peak))

	if len(statuses) != 12 {
		t.Fatalf("Expected 12 statuses, got %d", len(statuses))
	}
	if got := peak.Load(); got > 3 {
		t.Errorf("Concurrency exceeded limit: peak %d", got)
	}
	if got := peak.Load(); got < 2 {
		t.Errorf("Expected jobs to overlap, peak %d", got)
	}
	if running.Load() != 0 {
		t.Error("Run returned before all jobs finished")
	}
}

func TestPool_OneRecordPerJob(t *testing.T) {
	p := New(4, nil)
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = Job{ID: fmt.Sprintf("j%02d", i), Func: func(context.Context) error { return nil }}
	}

	statuses := p.Run(context.Background(), jobs)

	seen := make(map[string]int)
	for i, s := range statuses {
		seen[s.ID]++
		if s.Seq != i+1 {
			t.Errorf("status %d has seq %d", i, s.Seq)
		}
	}
	for _, j := range jobs {
		if seen[j.ID] != 1 {
			t.Errorf("job %s has %d records", j.ID, seen[j.ID])
		}
	}
}

func TestPool_ErrorsDoNotCancelOthers(t *testing.T) {
	var ran atomic.Int32
	jobs := []Job{
		{ID: "bad", Func: func(context.Context) error { return errors.New("build failed") }},
		{ID: "panics", Func: func(context.Context) error { panic("boom") }},
		{ID: "nil-func"},
	}
	for i := 0; i < 5; i++ {
		jobs = append(jobs, Job{ID: fmt.Sprintf("ok-%d", i), Func: func(ctx context.Context) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ran.Add(1)
			return nil
		}})
	}

	statuses := New(2, nil).Run(context.Background(), jobs)

	if len(statuses) != len(jobs) {
		t.Fatalf("Expected %d statuses, got %d", len(jobs), len(statuses))
	}
	if ran.Load() != 5 {
		t.Errorf("Expected 5 successful jobs, got %d", ran.Load())
	}

	failed := 0
	for _, s := range statuses {
		if s.Failed() {
			failed++
		}
	}
	if failed != 3 {
		t.Errorf("Expected 3 failed jobs, got %d", failed)
	}
}

func TestPool_Empty(t *testing.T) {
	called := false
	p := New(0, nil)
	p.OnComplete = func(JobStatus) { called = true }

	statuses := p.Run(context.Background(), nil)
	if len(statuses) != 0 {
		t.Errorf("Expected no statuses, got %d", len(statuses))
	}
	if called {
		t.Error("OnComplete called for empty batch")
	}
	if p.Workers() != 1 {
		t.Errorf("Expected worker floor of 1, got %d", p.Workers())
	}
}

func TestPool_OnCompleteSerialized(t *testing.T) {
	var mu sync.Mutex
	var order []int
	inCallback := false

	p := New(8, nil)
	p.OnComplete = func(s JobStatus) {
		if inCallback {
			t.Error("OnComplete called concurrently")
		}
		inCallback = true
		mu.Lock()
		order = append(order, s.Seq)
		mu.Unlock()
		inCallback = false
	}

	jobs := make([]Job, 30)
	for i := range jobs {
		jobs[i] = Job{ID: fmt.Sprint(i), Func: func(context.Context) error { return nil }}
	}
	p.Run(context.Background(), jobs)

	if len(order) != 30 {
		t.Fatalf("Expected 30 callbacks, got %d", len(order))
	}
	for i, seq := range order {
		if seq != i+1 {
			t.Fatalf("callback %d saw seq %d", i, seq)
		}
	}
	if len(p.Statuses()) != 30 {
		t.Error("Statuses does not match callbacks")
	}
}
