// Package supervisor composes the scheduler and the monitoring loop into the
// long-running process flow.
package supervisor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/voucherwatch/voucherwatch/internal/monitor"
)

// Scheduler gates when each monitoring run starts.
type Scheduler interface {
	Next() time.Time
	Wait(ctx context.Context, target time.Time) error
}

// MonitorLoop runs one monitoring cycle to completion.
type MonitorLoop interface {
	Run(ctx context.Context) error
}

// Supervisor repeats wait-for-schedule then run-monitoring until the context
// ends. Everything below this level is self-healing; an error escaping a
// subsystem is the single fatal path and propagates to the caller.
type Supervisor struct {
	scheduler Scheduler
	loop      MonitorLoop
	tracker   *monitor.Tracker
	logger    *zap.Logger
}

// New constructs a Supervisor.
func New(scheduler Scheduler, loop MonitorLoop, tracker *monitor.Tracker, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		scheduler: scheduler,
		loop:      loop,
		tracker:   tracker,
		logger:    logger,
	}
}

// Run blocks until the context is canceled or a fatal error occurs.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.logger.Info("supervisor stopping")
			return nil
		}

		target := s.scheduler.Next()
		s.tracker.SetNextTrigger(target)
		s.logger.Info("next monitoring run scheduled", zap.Time("target", target))

		if err := s.scheduler.Wait(ctx, target); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				s.logger.Info("supervisor stopping during schedule wait")
				return nil
			}
			return err
		}

		s.logger.Info("schedule reached, starting monitoring run")
		if err := s.loop.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				s.logger.Info("supervisor stopping during monitoring run")
				return nil
			}
			return err
		}
	}
}
