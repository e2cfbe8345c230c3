package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"motioncam/internal/service/retry"
)

func TestSystemClock_StampUsesOffset(t *testing.T) {
	c := NewSystemClock(28800, time.Second)
	utc := time.Date(2025, 6, 15, 4, 30, 5, 0, time.UTC)

	if got := c.Stamp(utc); got != "12:30:05" {
		t.Errorf("Stamp = %q, expected 12:30:05", got)
	}
}

func TestSystemClock_SyncWaitsForTime(t *testing.T) {
	c := NewSystemClock(0, time.Second)
	c.pollEvery = time.Millisecond

	calls := 0
	c.now = func() time.Time {
		calls++
		if calls < 3 {
			return time.Unix(0, 0)
		}
		return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	if err := c.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func TestSystemClock_SyncTimeout(t *testing.T) {
	c := NewSystemClock(0, 10*time.Millisecond)
	c.pollEvery = time.Millisecond
	c.now = func() time.Time { return time.Unix(0, 0) }

	if err := c.Sync(context.Background()); !errors.Is(err, retry.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}
