package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voucherwatch/voucherwatch/internal/monitor"
)

type fakeScheduler struct {
	next  time.Time
	waits int
}

func (s *fakeScheduler) Next() time.Time {
	return s.next
}

func (s *fakeScheduler) Wait(ctx context.Context, _ time.Time) error {
	s.waits++
	return ctx.Err()
}

type fakeLoop struct {
	runs   int
	err    error
	cancel context.CancelFunc
}

func (l *fakeLoop) Run(_ context.Context) error {
	l.runs++
	if l.cancel != nil {
		l.cancel()
	}
	return l.err
}

func TestSupervisorRunsLoopAfterSchedule(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	sched := &fakeScheduler{next: time.Now().Add(time.Hour)}
	loop := &fakeLoop{cancel: cancel}
	tracker := monitor.NewTracker()

	sup := New(sched, loop, tracker, zap.NewNop())
	if err := sup.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if loop.runs != 1 {
		t.Fatalf("expected one monitoring run, got %d", loop.runs)
	}
	if sched.waits != 1 {
		t.Fatalf("expected one schedule wait, got %d", sched.waits)
	}
	snap := tracker.Snapshot()
	if snap.NextTrigger == nil || !snap.NextTrigger.Equal(sched.next) {
		t.Fatalf("expected next trigger recorded, got %+v", snap.NextTrigger)
	}
}

func TestSupervisorStopsCleanlyOnCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sup := New(&fakeScheduler{next: time.Now()}, &fakeLoop{}, monitor.NewTracker(), zap.NewNop())
	if err := sup.Run(ctx); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

func TestSupervisorPropagatesFatalError(t *testing.T) {
	t.Parallel()

	fatal := errors.New("invariant violated")
	sup := New(
		&fakeScheduler{next: time.Now()},
		&fakeLoop{err: fatal},
		monitor.NewTracker(),
		zap.NewNop(),
	)
	if err := sup.Run(context.Background()); !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error to propagate, got %v", err)
	}
}
