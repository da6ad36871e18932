package comm

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReaderSplitFrames(t *testing.T) {
	ep := newFakeInEndpoint()
	r := NewReader(ep)
	defer r.Close()

	f1 := BuildFrame(BroadcastData, 1, 1, 2, 3, 4, 5, 6, 7, 8)
	f2 := BuildFrame(ChannelResponse, 1, 1, 2)
	ep.feed(0x00, 0x01)
	ep.feed(f1[:5]...)
	ep.feed(append(append([]byte{}, f1[5:]...), f2...)...)

	f, err := r.BlockingNextFrame()
	require.NoError(t, err)
	require.Equal(t, f1, f)
	// f2 is already buffered and must be returned without another read.
	f, err = r.PollNextFrame(0)
	require.NoError(t, err)
	require.Equal(t, f2, f)
}

func TestReaderPollTimeout(t *testing.T) {
	ep := newFakeInEndpoint()
	r := NewReader(ep)
	defer r.Close()

	f, err := r.PollNextFrame(10 * time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, f)

	built := BuildFrame(StartupMessage, 0)
	ep.feed(built...)
	f, err = r.PollNextFrame(500 * time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, built, f)
}

func TestReaderBlockingTimeout(t *testing.T) {
	r := NewReader(newFakeInEndpoint())
	r.Timeout = 10 * time.Millisecond
	defer r.Close()
	_, err := r.BlockingNextFrame()
	require.Equal(t, ErrTimeout, err)
}

func TestReaderTransferError(t *testing.T) {
	ep := newFakeInEndpoint()
	r := NewReader(ep)
	defer r.Close()
	failure := errors.New("pipe")
	ep.errCh <- failure
	_, err := r.BlockingNextFrame()
	require.Error(t, err)
	var te *TransferError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "read", te.Op)
	require.True(t, errors.Is(err, failure))
}

func TestReaderBadChecksum(t *testing.T) {
	ep := newFakeInEndpoint()
	r := NewReader(ep)
	defer r.Close()
	bad := BuildFrame(BroadcastData, 1, 1, 2, 3, 4, 5, 6, 7, 8)
	bad[4] ^= 0x01
	ep.feed(bad...)
	_, err := r.BlockingNextFrame()
	require.Equal(t, ErrBadChecksum, err)
}

func TestReaderCloseCancelsInFlight(t *testing.T) {
	ep := newFakeInEndpoint()
	r := NewReader(ep)
	f, err := r.PollNextFrame(0)
	require.NoError(t, err)
	require.Nil(t, f)
	require.NoError(t, r.Close())
	// Close returns only after the cancelled read completed.
	require.Equal(t, int32(1), atomic.LoadInt32(&ep.cancelled))
}
