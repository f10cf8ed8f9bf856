package system

import (
	"context"
	"testing"
	"time"
)

func TestNowIsCurrent(t *testing.T) {
	t.Parallel()

	c := New()
	before := time.Now()
	got := c.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Fatalf("Now() = %v outside [%v, %v]", got, before, after)
	}
}

func TestSleepHonorsCancellation(t *testing.T) {
	t.Parallel()

	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := c.Sleep(ctx, time.Hour)
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Sleep blocked for %v despite cancellation", elapsed)
	}
}

func TestSleepZeroDuration(t *testing.T) {
	t.Parallel()

	c := New()
	if err := c.Sleep(context.Background(), 0); err != nil {
		t.Fatalf("Sleep(0) error = %v", err)
	}
}
