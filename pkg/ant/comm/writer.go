package comm

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
)

// DefaultCancelGrace is how long to wait for a cancelled write to land.
const DefaultCancelGrace = 10 * time.Millisecond

// Writer writes frames to an OutEndpoint, one transfer at a time.
type Writer struct {
	Endpoint    OutEndpoint
	Timeout     time.Duration
	CancelGrace time.Duration

	inflight *transfer
}

// NewWriter creates a Writer.
func NewWriter(ep OutEndpoint) *Writer {
	return &Writer{
		Endpoint:    ep,
		Timeout:     DefaultTimeout,
		CancelGrace: DefaultCancelGrace,
	}
}

// WriteFrame submits the frame and waits for the write to complete.
func (w *Writer) WriteFrame(f Frame) error {
	if err := w.reap(); err != nil {
		return err
	}
	if w.inflight != nil {
		panic("comm: write submitted while another is in flight")
	}
	if glog.V(3) {
		glog.Infof("send %s", f)
	}
	buf, ep := []byte(f), w.Endpoint
	t := submit(func(ctx context.Context) (int, error) {
		return ep.WriteContext(ctx, buf)
	})
	w.inflight = t
	if !t.wait(w.Timeout) {
		t.abort()
		if t.wait(w.CancelGrace) {
			w.inflight = nil
		}
		return ErrWriteTimeout
	}
	w.inflight = nil
	if err := t.result.err; err != nil {
		return &TransferError{Op: "write", Err: err}
	}
	if t.result.n != len(buf) {
		return &TransferError{Op: "write", Err: fmt.Errorf("short write %d of %d bytes", t.result.n, len(buf))}
	}
	return nil
}

// Close waits for any cancelled write still in flight.
func (w *Writer) Close() error {
	if t := w.inflight; t != nil {
		w.inflight = nil
		t.close()
	}
	return nil
}

// reap waits up to Timeout for a write which was cancelled but didn't
// complete in the grace period. ErrWriteTimeout is returned if it is still
// in flight, and the next write tries again.
func (w *Writer) reap() error {
	t := w.inflight
	if t == nil || !t.cancelled {
		return nil
	}
	if !t.wait(w.Timeout) {
		glog.Warningf("cancelled write still in flight after %s", w.Timeout)
		return ErrWriteTimeout
	}
	w.inflight = nil
	return nil
}
