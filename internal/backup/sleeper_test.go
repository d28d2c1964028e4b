package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
)

func TestClockSleeper_Sleep(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	sleeper := ClockSleeper{Clock: clk}

	done := make(chan error, 1)
	go func() { done <- sleeper.Sleep(context.Background(), 6*time.Second) }()

	if err := clk.WaitAdvance(6*time.Second, time.Second, 1); err != nil {
		t.Fatalf("WaitAdvance() error = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Sleep() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep() did not return after the clock advanced")
	}
}

func TestClockSleeper_Cancelled(t *testing.T) {
	clk := testclock.NewClock(time.Now())
	sleeper := ClockSleeper{Clock: clk}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleeper.Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
}
