// Package schedule computes monthly trigger instants and performs the
// chunked wait that gates each monitoring run.
package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/voucherwatch/voucherwatch/internal/monitor"
)

// MaxSleepChunk bounds each individual sleep so coarse sleep primitives stay
// interruptible and the remaining wall-clock time is re-read periodically.
const MaxSleepChunk = time.Hour

// NextTrigger computes the next instant at (dayOfMonth, hour) strictly after
// now. If the requested day does not exist in a candidate month, the
// candidate rolls forward a month. Rolling is bounded to two steps; a day
// that exists in no two consecutive candidate months (only day 31 around
// short-month pairs) lands on the second roll's month regardless.
func NextTrigger(dayOfMonth, hour int, now time.Time) time.Time {
	candidate, ok := monthTarget(now.Year(), now.Month(), dayOfMonth, hour, now.Location())
	if ok && candidate.After(now) {
		return candidate
	}

	next := now.AddDate(0, 1, -now.Day()+1)
	candidate, ok = monthTarget(next.Year(), next.Month(), dayOfMonth, hour, now.Location())
	if ok {
		return candidate
	}

	after := next.AddDate(0, 1, 0)
	candidate, _ = monthTarget(after.Year(), after.Month(), dayOfMonth, hour, now.Location())
	return candidate
}

// monthTarget builds the instant at (year, month, day, hour) and reports
// whether that day exists in the month. time.Date normalizes overflow days
// into the next month, which is exactly the case to reject.
func monthTarget(year int, month time.Month, day, hour int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, hour, 0, 0, 0, loc)
	return t, t.Day() == day && t.Month() == month
}

// Scheduler gates monitoring runs on the configured monthly trigger.
type Scheduler struct {
	dayOfMonth int
	hour       int
	topic      string
	notifier   monitor.Notifier
	clock      monitor.Clock
	logger     *zap.Logger
}

// New constructs a Scheduler.
func New(dayOfMonth, hour int, topic string, notifier monitor.Notifier, clock monitor.Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		dayOfMonth: dayOfMonth,
		hour:       hour,
		topic:      topic,
		notifier:   notifier,
		clock:      clock,
		logger:     logger,
	}
}

// Next returns the next trigger instant relative to the scheduler's clock.
func (s *Scheduler) Next() time.Time {
	return NextTrigger(s.dayOfMonth, s.hour, s.clock.Now())
}

// Wait announces the target and sleeps until it, in bounded chunks that
// re-check the remaining wall-clock time. It returns early only when the
// context is canceled.
func (s *Scheduler) Wait(ctx context.Context, target time.Time) error {
	remaining := target.Sub(s.clock.Now())
	if remaining <= 0 {
		return nil
	}

	days := int(remaining.Hours() / 24)
	s.logger.Info("waiting for schedule",
		zap.Time("target", target),
		zap.Int("days", days),
	)
	if err := s.notifier.Send(ctx, s.topic, "EDP Monitor",
		fmt.Sprintf("Monitorizacao agendada para %s (%d dias)", target.Format("2006-01-02 15:04"), days),
	); err != nil {
		s.logger.Warn("schedule notification failed", zap.Error(err))
	}

	for {
		remaining = target.Sub(s.clock.Now())
		if remaining <= 0 {
			return nil
		}
		chunk := remaining
		if chunk > MaxSleepChunk {
			chunk = MaxSleepChunk
		}
		if err := s.clock.Sleep(ctx, chunk); err != nil {
			return err
		}
	}
}
