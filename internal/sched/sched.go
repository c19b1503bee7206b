// Package sched runs the engine's periodic cycles: detection, escalation
// checks, and lifecycle sweeps. Every job is idempotent, so a crashed or
// skipped run is made whole by the next tick.
package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// Job is a named periodic task.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Runner drives a set of jobs, each on its own ticker.
type Runner struct {
	logger log.Logger
	jobs   []Job

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a runner for the given jobs. Jobs with a non-positive
// interval are skipped.
func New(logger log.Logger, jobs ...Job) *Runner {
	if logger == nil {
		logger = log.Nop()
	}
	return &Runner{logger: logger, jobs: jobs}
}

// Start launches one goroutine per job. Each job runs once immediately,
// then on every tick until the context is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)

	for _, job := range r.jobs {
		if job.Every <= 0 {
			r.logger.Warn(ctx, "skipping job with non-positive interval", "job", job.Name)
			continue
		}

		r.wg.Add(1)
		go r.loop(ctx, job)
	}
}

// Stop cancels all jobs and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	r.logger.Info(ctx, "starting job", "job", job.Name, "every", job.Every.String())

	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()

	r.runOnce(ctx, job)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "stopping job", "job", job.Name)
			return
		case <-ticker.C:
			r.runOnce(ctx, job)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, job Job) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(ctx, fmt.Errorf("panic: %v", p), "job panicked", "job", job.Name)
		}
	}()

	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error(ctx, err, "job run failed", "job", job.Name)
	}
}
