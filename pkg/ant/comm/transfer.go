package comm

import (
	"context"
	"time"
)

// InEndpoint is the bulk-in side of the transport.
type InEndpoint interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// OutEndpoint is the bulk-out side of the transport.
type OutEndpoint interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

// completion is delivered exactly once per submitted transfer.
type completion struct {
	n   int
	err error
}

// transfer is a single asynchronous transfer in flight.
type transfer struct {
	cancel    context.CancelFunc
	done      chan completion
	result    completion
	completed bool
	cancelled bool
}

func submit(fn func(ctx context.Context) (int, error)) *transfer {
	ctx, cancel := context.WithCancel(context.Background())
	t := &transfer{cancel: cancel, done: make(chan completion, 1)}
	go func() {
		n, err := fn(ctx)
		t.done <- completion{n: n, err: err}
	}()
	return t
}

// wait waits for the completion up to timeout. A non-positive timeout
// only checks if the transfer has completed.
func (t *transfer) wait(timeout time.Duration) bool {
	if t.completed {
		return true
	}
	if timeout <= 0 {
		select {
		case t.result = <-t.done:
			t.completed = true
		default:
		}
		return t.completed
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case t.result = <-t.done:
		t.completed = true
	case <-timer.C:
	}
	return t.completed
}

func (t *transfer) abort() {
	t.cancelled = true
	t.cancel()
}

// close cancels the transfer and blocks until its completion is observed.
func (t *transfer) close() {
	t.abort()
	if !t.completed {
		t.result = <-t.done
		t.completed = true
	}
}
