// Package schedule re-runs a job on a cron schedule. It backs the watch
// command for hosts without a system timer; every tick is an independent
// job invocation.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner invokes Job on Schedule until its context is cancelled or Job
// returns an error that Fatal accepts.
type Runner struct {
	// Schedule is a standard five-field cron spec or a descriptor such as
	// "@every 1m".
	Schedule string
	Job      func(ctx context.Context) error
	// Fatal reports whether a Job error should stop the runner. When nil,
	// every error is logged and the next tick proceeds.
	Fatal func(error) bool
	// Immediate runs Job once before waiting for the first tick.
	Immediate bool
	Logger    *zap.Logger
}

// Start blocks until ctx is done or a fatal job error occurs. It returns
// nil on cancellation and the fatal error otherwise. Ticks never overlap:
// a tick that fires while the previous job is still running is skipped.
func (r *Runner) Start(ctx context.Context) error {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clog := cronLogger{log: log.Sugar()}

	fatal := make(chan error, 1)
	job := func() {
		err := r.Job(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			log.Debug("scheduled run interrupted", zap.Error(err))
			return
		}
		if r.Fatal != nil && r.Fatal(err) {
			log.Error("scheduled run failed, stopping", zap.Error(err))
			select {
			case fatal <- err:
			default:
			}
			return
		}
		log.Warn("scheduled run failed", zap.Error(err))
	}

	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(r.Schedule, job); err != nil {
		return fmt.Errorf("parsing schedule %q: %w", r.Schedule, err)
	}

	if r.Immediate {
		job()
		select {
		case err := <-fatal:
			return err
		default:
		}
	}

	c.Start()
	log.Info("watching", zap.String("schedule", r.Schedule))

	var err error
	select {
	case <-ctx.Done():
	case err = <-fatal:
	}

	// Wait for a running job to finish before returning.
	<-c.Stop().Done()
	log.Info("watch stopped")
	return err
}

// cronLogger adapts zap to cron.Logger. Cron's own chatter goes to Debug.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
