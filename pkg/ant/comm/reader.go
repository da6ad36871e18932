package comm

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// Default transfer parameters.
const (
	DefaultTimeout  = 2 * time.Second
	DefaultReadSize = 128
)

// Reader reads frames from an InEndpoint.
type Reader struct {
	Endpoint InEndpoint
	Timeout  time.Duration
	ReadSize int

	acc      Accumulator
	buf      []byte
	inflight *transfer
}

// NewReader creates a Reader.
func NewReader(ep InEndpoint) *Reader {
	return &Reader{
		Endpoint: ep,
		Timeout:  DefaultTimeout,
		ReadSize: DefaultReadSize,
	}
}

// PollNextFrame returns the next frame available within timeout.
// It returns nil without error if no complete frame arrived in time.
// A zero timeout doesn't block.
func (r *Reader) PollNextFrame(timeout time.Duration) (Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		if r.inflight != nil {
			if !r.inflight.wait(time.Until(deadline)) {
				return nil, nil
			}
			res := r.inflight.result
			r.inflight = nil
			if res.err != nil {
				return nil, &TransferError{Op: "read", Err: res.err}
			}
			n := res.n
			if n > len(r.buf) {
				n = len(r.buf)
			}
			r.acc.Append(r.buf[:n])
		}
		f, err := r.acc.TryParseOne()
		if err != nil {
			return nil, err
		}
		if f != nil {
			if glog.V(3) {
				glog.Infof("recv %s", f)
			}
			return f, nil
		}
		r.submit()
		if !time.Now().Before(deadline) {
			return nil, nil
		}
	}
}

// BlockingNextFrame waits for the next frame up to Timeout.
func (r *Reader) BlockingNextFrame() (Frame, error) {
	f, err := r.PollNextFrame(r.Timeout)
	if err == nil && f == nil {
		err = ErrTimeout
	}
	return f, err
}

// Buffered returns the number of received bytes not parsed yet.
func (r *Reader) Buffered() int {
	return r.acc.Len()
}

// Close cancels the in-flight read and waits for it to complete.
func (r *Reader) Close() error {
	if t := r.inflight; t != nil {
		r.inflight = nil
		t.close()
	}
	return nil
}

func (r *Reader) submit() {
	if r.inflight != nil {
		panic("comm: read submitted while another is in flight")
	}
	size := r.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	if len(r.buf) != size {
		r.buf = make([]byte, size)
	}
	buf, ep := r.buf, r.Endpoint
	r.inflight = submit(func(ctx context.Context) (int, error) {
		return ep.ReadContext(ctx, buf)
	})
}
