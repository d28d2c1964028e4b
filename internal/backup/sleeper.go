package backup

import (
	"context"
	"time"

	"github.com/juju/clock"
)

// Sleeper waits between two dump listings.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper sleeps on a clock.Clock and returns early when ctx is done.
type ClockSleeper struct {
	Clock clock.Clock
}

// Sleep implements Sleeper.
func (s ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.Clock.After(d):
		return nil
	}
}
