package jobs

import (
	"context"
	"time"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
}

func New(ctx context.Context) *Runner { return &Runner{ctx: ctx} }

func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Daily fires fn once per day at the given wall-clock offset in loc.
func (r *Runner) Daily(at time.Duration, loc *time.Location, name string, fn Job) {
	go func() {
		for {
			now := time.Now().In(loc)
			next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).Add(at)
			if !next.After(now) {
				next = next.AddDate(0, 0, 1)
			}
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-r.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				r.run(name, fn)
			}
		}
	}()
}

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	if err := fn(r.ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
	}
	jobRuns.WithLabelValues(name).Inc()
	jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
