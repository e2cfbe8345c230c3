package clock

import (
	"context"
	"fmt"
	"time"

	"motioncam/internal/service/retry"
)

// StampLayout is the HH:MM:SS layout used for display text and filenames.
const StampLayout = "15:04:05"

// minSyncedYear is the earliest year a synchronized clock can report. Boards
// without an RTC boot at the epoch until NTP has run.
const minSyncedYear = 2020

// Clock supplies wall-clock time once time sync has completed.
type Clock interface {
	Now() time.Time
	Stamp(t time.Time) string
	Sync(ctx context.Context) error
}

// SystemClock reads the host clock, shown in a fixed offset zone.
type SystemClock struct {
	zone        *time.Location
	now         func() time.Time
	syncTimeout time.Duration
	pollEvery   time.Duration
}

// NewSystemClock creates a clock displaying times offsetSeconds east of UTC.
func NewSystemClock(offsetSeconds int, syncTimeout time.Duration) *SystemClock {
	return &SystemClock{
		zone:        time.FixedZone(fmt.Sprintf("UTC%+d", offsetSeconds/3600), offsetSeconds),
		now:         time.Now,
		syncTimeout: syncTimeout,
		pollEvery:   500 * time.Millisecond,
	}
}

// Now returns the current time in the configured zone.
func (c *SystemClock) Now() time.Time {
	return c.now().In(c.zone)
}

// Stamp formats t as HH:MM:SS in the configured zone.
func (c *SystemClock) Stamp(t time.Time) string {
	return t.In(c.zone).Format(StampLayout)
}

// Sync waits until the host clock has been set by the network time daemon.
func (c *SystemClock) Sync(ctx context.Context) error {
	return retry.Until(ctx, c.syncTimeout, c.pollEvery, func() error {
		if y := c.now().Year(); y < minSyncedYear {
			return fmt.Errorf("clock not synchronized (year %d)", y)
		}
		return nil
	})
}
