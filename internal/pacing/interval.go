package pacing

import (
	"context"
	"time"
)

// Pacer blocks a worker between heartbeats.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Interval waits a fixed duration per call. The wait ends early with
// ctx.Err() when ctx is cancelled.
type Interval struct {
	d time.Duration
}

func NewInterval(d time.Duration) *Interval {
	return &Interval{d: d}
}

func (iv *Interval) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if iv.d <= 0 {
		return nil
	}
	timer := time.NewTimer(iv.d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ticks is a Pacer released by sends on a channel. A closed channel releases
// every pending and future Wait.
type Ticks <-chan struct{}

func (t Ticks) Wait(ctx context.Context) error {
	select {
	case <-t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
