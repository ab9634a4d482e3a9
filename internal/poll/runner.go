// Package poll schedules periodic poll cycles
package poll

import (
	"context"
	"log"
	"time"
)

// Runner runs a task on a fixed interval with support for manual triggers.
// Cycles never overlap: the runner is single-threaded and each task call
// runs to completion before the next tick or trigger is handled. Pending
// triggers are coalesced into one run.
type Runner struct {
	interval time.Duration
	logger   *log.Logger
	name     string
	task     func(context.Context)
	trigger  chan struct{}
}

// NewRunner creates a runner for the given task
func NewRunner(interval time.Duration, logger *log.Logger, name string, task func(context.Context)) *Runner {
	return &Runner{
		interval: interval,
		logger:   logger,
		name:     name,
		task:     task,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate run. Non-blocking; if a trigger is already
// pending the request is coalesced.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run executes the task immediately, then on every tick or trigger until
// the context is cancelled. Blocks; run it in a goroutine.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if r.logger != nil {
		r.logger.Printf("[%s] Started (interval: %v)", r.name, r.interval)
	}

	// Run task immediately on start
	r.task(ctx)

	for {
		select {
		case <-ctx.Done():
			if r.logger != nil {
				r.logger.Printf("[%s] Stopped", r.name)
			}
			return
		case <-ticker.C:
			r.task(ctx)
		case <-r.trigger:
			r.task(ctx)
		}
	}
}
