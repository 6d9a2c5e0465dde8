package chat

import (
	"context"
	"time"
)

// Scheduler paces the game between announcements. The production
// implementation waits on real timers; tests substitute a
// deterministic scheduler that returns immediately.
type Scheduler interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err()
	// in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerScheduler implements Scheduler with real timers.
type TimerScheduler struct{}

// Sleep waits for d or context cancellation.
func (TimerScheduler) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
