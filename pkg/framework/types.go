package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Ticker is stepped by a Loop in every iteration.
// An error returned stops the loop.
type Ticker interface {
	Tick(context.Context) error
}

// TickFunc is the func form of Ticker.
type TickFunc func(context.Context) error

// Tick implements Ticker.
func (f TickFunc) Tick(ctx context.Context) error {
	return f(ctx)
}

type everyTicker struct {
	Ticker
	interval time.Duration
	last     time.Time
}

func (t *everyTicker) Tick(ctx context.Context) error {
	now := time.Now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return nil
	}
	t.last = now
	return t.Ticker.Tick(ctx)
}

// Every wraps a Ticker to be ticked at most once per interval.
func Every(interval time.Duration, ticker Ticker) Ticker {
	return &everyTicker{Ticker: ticker, interval: interval}
}
