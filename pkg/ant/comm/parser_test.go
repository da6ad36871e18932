package comm

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildFrame(t *testing.T) {
	f := BuildFrame(SetNetworkKey, 0x00, 0xB9, 0xA5, 0x21, 0xFB, 0xBD, 0x72, 0xC3, 0x45)
	require.Equal(t, Frame{0xA4, 0x09, 0x46, 0x00, 0xB9, 0xA5, 0x21, 0xFB, 0xBD, 0x72, 0xC3, 0x45, 0x64}, f)
	require.Equal(t, SetNetworkKey, f.ID())
	require.Len(t, f.Data(), 9)
	require.True(t, VerifyChecksum(f))

	f = BuildFrame(ResetSystem, 0)
	require.Equal(t, Frame{0xA4, 0x01, 0x4A, 0x00, 0xEF}, f)
}

func TestFrameChannel(t *testing.T) {
	testCases := []struct {
		name    string
		frame   Frame
		channel byte
		ok      bool
	}{
		{"broadcast", BuildFrame(BroadcastData, 3, 1, 2, 3, 4, 5, 6, 7, 8), 3, true},
		{"burst", BuildFrame(BurstTransferData, 0xA2, 1, 2, 3, 4, 5, 6, 7, 8), 2, true},
		{"channel response", BuildFrame(ChannelResponse, 5, 1, 7), 5, true},
		{"empty", BuildFrame(StartupMessage), 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ch, ok := tc.frame.Channel()
			require.Equalf(t, tc.ok, ok, "%s ok", tc.name)
			require.Equalf(t, tc.channel, ch, "%s channel", tc.name)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	ids := []MessageID{BroadcastData, ChannelResponse, StartupMessage, MessageID(0xA4), MessageID(0)}
	for _, id := range ids {
		for size := 0; size <= 255; size++ {
			payload := make([]byte, size)
			for i := range payload {
				payload[i] = byte(i*7 + size)
			}
			built := BuildFrame(id, payload...)
			var acc Accumulator
			acc.Append(built)
			f, err := acc.TryParseOne()
			require.NoErrorf(t, err, "%s size %d", id, size)
			require.Equalf(t, built, f, "%s size %d", id, size)
			require.Truef(t, VerifyChecksum(f), "%s size %d checksum", id, size)
			require.Zerof(t, acc.Len(), "%s size %d remaining", id, size)
		}
	}
}

func TestParseResync(t *testing.T) {
	built := BuildFrame(BroadcastData, 0, 1, 2, 3, 4, 5, 6, 7, 8)
	for k := 0; k < 20; k++ {
		var acc Accumulator
		for i := 0; i < k; i++ {
			acc.Append([]byte{byte(i)})
		}
		acc.Append(built)
		f, err := acc.TryParseOne()
		require.NoError(t, err)
		require.Equalf(t, built, f, "garbage %d", k)
		require.Zero(t, acc.Len())
	}
}

func TestParsePartial(t *testing.T) {
	built := BuildFrame(BroadcastData, 0, 1, 2, 3, 4, 5, 6, 7, 8)
	for n := 0; n < len(built); n++ {
		var acc Accumulator
		acc.Append(built[:n])
		f, err := acc.TryParseOne()
		require.NoError(t, err)
		require.Nilf(t, f, "partial %d", n)
		require.Truef(t, bytes.Equal(built[:n], acc.Bytes()), "partial %d content", n)
		acc.Append(built[n:])
		f, err = acc.TryParseOne()
		require.NoError(t, err)
		require.Equalf(t, built, f, "completed %d", n)
	}
}

func TestParseMultipleFrames(t *testing.T) {
	f1 := BuildFrame(BroadcastData, 0, 1, 2, 3, 4, 5, 6, 7, 8)
	f2 := BuildFrame(ChannelResponse, 0, 1, 8)
	var acc Accumulator
	acc.Append(append(append([]byte{0x11, 0x22}, f1...), f2[:3]...))
	f, err := acc.TryParseOne()
	require.NoError(t, err)
	require.Equal(t, f1, f)
	f, err = acc.TryParseOne()
	require.NoError(t, err)
	require.Nil(t, f)
	acc.Append(f2[3:])
	f, err = acc.TryParseOne()
	require.NoError(t, err)
	require.Equal(t, f2, f)
}

func TestChecksumCorruption(t *testing.T) {
	built := BuildFrame(BroadcastData, 0, 1, 2, 3, 4, 5, 6, 7, 8)
	for i := range built {
		for bit := uint(0); bit < 8; bit++ {
			name := fmt.Sprintf("byte %d bit %d", i, bit)
			corrupted := append(Frame(nil), built...)
			corrupted[i] ^= 1 << bit
			require.Falsef(t, VerifyChecksum(corrupted), "%s checksum", name)
		}
	}
}

func TestParseBadChecksum(t *testing.T) {
	bad := BuildFrame(BroadcastData, 0, 1, 2, 3, 4, 5, 6, 7, 8)
	bad[5] ^= 0x10
	good := BuildFrame(StartupMessage, 0x20)
	var acc Accumulator
	acc.Append(bad)
	acc.Append(good)
	_, err := acc.TryParseOne()
	require.Equal(t, ErrBadChecksum, err)
	f, err := acc.TryParseOne()
	require.NoError(t, err)
	require.Equal(t, good, f)
}

func TestNames(t *testing.T) {
	require.Equal(t, "BROADCAST_DATA", BroadcastData.String())
	require.Equal(t, "MSG_0x99", MessageID(0x99).String())
	require.Equal(t, "channel closed", EventChannelClosed.String())
	require.Equal(t, "dropped to search mode", EventRxFailGoToSearch.String())
	require.Equal(t, "unknown channel event 0xFE", ChannelEvent(0xFE).String())
}
