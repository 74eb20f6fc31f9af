// Package scheduler runs the digest on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner is a job that reports its own failures.
type Runner interface {
	Run(ctx context.Context)
}

type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	entry   cron.EntryID
	enabled bool
}

// New registers runner under spec, a standard five field cron expression evaluated in
// loc. An empty spec yields a scheduler that never fires.
func New(spec string, loc *time.Location, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger: logger.With(slog.String("component", "scheduler"))}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{cron: c, loc: loc}
	if spec == "" {
		return s, nil
	}

	id, err := c.AddFunc(spec, func() {
		runner.Run(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	s.entry = id
	s.enabled = true
	return s, nil
}

func (s *Scheduler) Start() {
	if s.enabled {
		s.cron.Start()
	}
}

// Stop halts the schedule and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.enabled {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next activation after now, or the zero time when disabled.
func (s *Scheduler) Next() time.Time {
	if !s.enabled {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Schedule.Next(time.Now().In(s.loc))
}

// cronLogger routes cron's logr style calls into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
