package serial

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePort behaves like a port with read timeout: Read returns 0 bytes
// when nothing is available.
type fakePort struct {
	lock    sync.Mutex
	in      bytes.Buffer
	out     bytes.Buffer
	chunk   int
	closed  bool
	failure error
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.failure != nil {
		return 0, p.failure
	}
	if p.in.Len() == 0 {
		p.lock.Unlock()
		time.Sleep(time.Millisecond)
		p.lock.Lock()
		return 0, nil
	}
	return p.in.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.chunk > 0 && len(b) > p.chunk {
		b = b[:p.chunk]
	}
	return p.out.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) feed(b ...byte) {
	p.lock.Lock()
	p.in.Write(b)
	p.lock.Unlock()
}

func TestReadContext(t *testing.T) {
	fp := &fakePort{}
	p := &Port{rw: fp}
	go func() {
		time.Sleep(10 * time.Millisecond)
		fp.feed(0xA4, 0x01, 0x6F, 0x20, 0xEA)
	}()
	buf := make([]byte, 128)
	n, err := p.ReadContext(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0xA4, 0x01, 0x6F, 0x20, 0xEA}, buf[:n])
}

func TestReadContextCancel(t *testing.T) {
	p := &Port{rw: &fakePort{}}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	n, err := p.ReadContext(ctx, make([]byte, 16))
	require.Zero(t, n)
	require.Equal(t, context.Canceled, err)
}

func TestReadContextError(t *testing.T) {
	failure := errors.New("unplugged")
	p := &Port{rw: &fakePort{failure: failure}}
	_, err := p.ReadContext(context.Background(), make([]byte, 16))
	require.Equal(t, failure, err)
}

func TestWriteContext(t *testing.T) {
	fp := &fakePort{chunk: 3}
	p := &Port{rw: fp}
	frame := []byte{0xA4, 0x01, 0x4A, 0x00, 0xEF}
	n, err := p.WriteContext(context.Background(), frame)
	require.NoError(t, err)
	require.Equal(t, len(frame), n)
	require.Equal(t, frame, fp.out.Bytes())
	require.NoError(t, p.Close())
	require.True(t, fp.closed)
}
