package xli

import (
	"context"
	"time"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Sleeper abstracts pacing delays between remote calls so batch tests do not
// actually wait.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// RealSleeper waits for the given duration or until the context is done.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// NopSleeper returns immediately. Use in tests.
type NopSleeper struct{}

func (NopSleeper) Sleep(context.Context, time.Duration) {}
