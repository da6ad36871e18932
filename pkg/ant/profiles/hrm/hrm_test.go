package hrm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ant.go/pkg/ant/comm"
	"github.com/robotalks/ant.go/pkg/ant/stick"
	"github.com/robotalks/ant.go/pkg/ant/stick/sticktest"
)

func openTestMonitor(t *testing.T) (*sticktest.Device, *stick.Stick, *Monitor) {
	dev := sticktest.NewDevice()
	conf := stick.NewConfig()
	conf.TickTimeout = 200 * time.Millisecond
	s, err := conf.Open(dev, dev)
	require.NoError(t, err)
	m, err := Open(s, 0)
	require.NoError(t, err)
	return dev, s, m
}

func TestDecodeHeartRate(t *testing.T) {
	dev, s, m := openTestMonitor(t)
	defer s.Close()
	now := time.Unix(1000, 0)
	m.Now = func() time.Time { return now }
	ch := m.Channel().Number()

	require.Zero(t, m.InstantaneousHeartRate())
	dev.Inject(sticktest.ChannelIDResponse(ch, DeviceType, 4242))
	require.NoError(t, s.Tick())
	require.Equal(t, stick.StateOpen, m.Channel().State())

	dev.Inject(sticktest.Broadcast(ch, 0x04, 0xFF, 0xFF, 0xFF, 0x34, 0x12, 17, 72))
	require.NoError(t, s.Tick())
	require.Equal(t, 72, m.InstantaneousHeartRate())
	require.Equal(t, byte(17), m.HeartBeatCount())
	last, prev := m.HeartBeatEventTime()
	require.Equal(t, uint16(0x1234), last)
	require.Zero(t, prev)

	dev.Inject(sticktest.Broadcast(ch, 0x84, 0xFF, 0xFF, 0xFF, 0x00, 0x16, 18, 75))
	require.NoError(t, s.Tick())
	last, prev = m.HeartBeatEventTime()
	require.Equal(t, uint16(0x1600), last)
	require.Equal(t, uint16(0x1234), prev)
	require.Equal(t, 75, m.InstantaneousHeartRate())

	now = now.Add(StaleTimeout + time.Millisecond)
	require.Zero(t, m.InstantaneousHeartRate())
}

func TestResetOnLeavingOpen(t *testing.T) {
	dev, s, m := openTestMonitor(t)
	defer s.Close()
	ch := m.Channel().Number()

	dev.Inject(sticktest.ChannelIDResponse(ch, DeviceType, 4242),
		sticktest.Broadcast(ch, 0x04, 0xFF, 0xFF, 0xFF, 0x34, 0x12, 17, 72))
	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())
	require.Equal(t, 72, m.InstantaneousHeartRate())

	dev.Inject(sticktest.ChannelEvent(ch, comm.EventRxFailGoToSearch))
	require.NoError(t, s.Tick())
	require.Equal(t, stick.StateSearching, m.Channel().State())
	require.Zero(t, m.InstantaneousHeartRate())
	require.Zero(t, m.HeartBeatCount())
}

func TestChannelConfig(t *testing.T) {
	_, s, m := openTestMonitor(t)
	defer s.Close()
	require.Equal(t, ChannelConfig(0), m.Channel().Config())
	require.Equal(t, stick.ChannelID{DeviceType: DeviceType}, m.Channel().ID())
	require.NoError(t, m.Close())
	require.Equal(t, stick.StateClosed, m.Channel().State())
	require.Empty(t, s.Channels())
}
