package comm

import (
	"context"
	"sync/atomic"
)

type fakeInEndpoint struct {
	dataCh    chan []byte
	errCh     chan error
	cancelled int32
}

func newFakeInEndpoint() *fakeInEndpoint {
	return &fakeInEndpoint{
		dataCh: make(chan []byte, 16),
		errCh:  make(chan error, 1),
	}
}

func (e *fakeInEndpoint) ReadContext(ctx context.Context, buf []byte) (int, error) {
	select {
	case b := <-e.dataCh:
		return copy(buf, b), nil
	case err := <-e.errCh:
		return 0, err
	case <-ctx.Done():
		atomic.AddInt32(&e.cancelled, 1)
		return 0, ctx.Err()
	}
}

func (e *fakeInEndpoint) feed(b ...byte) {
	e.dataCh <- b
}

type fakeOutEndpoint struct {
	writtenCh chan []byte
	err       error
	block     bool
	// the first stuck writes ignore cancellation and wait for release.
	stuck     int32
	release   chan struct{}
	cancelled int32
}

func newFakeOutEndpoint() *fakeOutEndpoint {
	return &fakeOutEndpoint{
		writtenCh: make(chan []byte, 16),
		release:   make(chan struct{}),
	}
}

func (e *fakeOutEndpoint) WriteContext(ctx context.Context, buf []byte) (int, error) {
	if atomic.AddInt32(&e.stuck, -1) >= 0 {
		<-e.release
		return 0, context.Canceled
	}
	if e.block {
		<-ctx.Done()
		atomic.AddInt32(&e.cancelled, 1)
		return 0, ctx.Err()
	}
	if e.err != nil {
		return 0, e.err
	}
	b := make([]byte, len(buf))
	copy(b, buf)
	e.writtenCh <- b
	return len(buf), nil
}
