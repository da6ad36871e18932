package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopStopsOnTickerError(t *testing.T) {
	failure := errors.New("stick gone")
	var order []string
	count := 0
	loop := NewLoop().AddTicker(
		TickFunc(func(ctx context.Context) error {
			order = append(order, "a")
			return nil
		}),
		TickFunc(func(ctx context.Context) error {
			order = append(order, "b")
			if count++; count == 3 {
				return failure
			}
			return nil
		}),
	)
	require.Equal(t, failure, loop.Run(context.Background()))
	require.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, order)
}

func TestLoopCancel(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Millisecond
	started := make(chan struct{})
	stopped := make(chan struct{})
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	require.Equal(t, context.Canceled, loop.Run(ctx))
	select {
	case <-stopped:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("runnable not stopped")
	}
}

func TestLoopTriggerNext(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour
	ticked := make(chan struct{}, 1)
	loop.AddTicker(TickFunc(func(ctx context.Context) error {
		ticked <- struct{}{}
		return errors.New("done")
	}))
	loop.TriggerNext()
	require.EqualError(t, loop.Run(context.Background()), "done")
	<-ticked
}

func TestEvery(t *testing.T) {
	count := 0
	ticker := Every(time.Hour, TickFunc(func(ctx context.Context) error {
		count++
		return nil
	}))
	for i := 0; i < 5; i++ {
		require.NoError(t, ticker.Tick(context.Background()))
	}
	require.Equal(t, 1, count)
}

func TestRunnerAggregatesErrors(t *testing.T) {
	failure := errors.New("failed")
	r := NewRunner().Go(
		NamedRun("stick", RunFunc(func(ctx context.Context) error { return failure })),
		NamedRun("canceled", RunFunc(func(ctx context.Context) error { return context.Canceled })),
		RunFunc(func(ctx context.Context) error { return nil }),
	)
	err := r.Wait()
	var agg *AggregatedError
	require.True(t, errors.As(err, &agg))
	require.Len(t, agg.Errors, 1)
	require.EqualError(t, err, "stick: failed")
	require.True(t, errors.Is(err, failure))
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	go cancel()
	err := RunWithContextCancel(ctx, func() { close(release) }, func() error {
		<-release
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)
}

func TestAggregatedError(t *testing.T) {
	notFound := errors.New("not found")
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(notFound)
	require.EqualError(t, errs.Aggregate(), "not found")
	errs.Add(errors.New("closed"))
	err := errs.Aggregate()
	require.EqualError(t, err, "multiple errors: not found; closed")
	require.True(t, errors.Is(err, notFound))
}
