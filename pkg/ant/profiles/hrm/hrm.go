// Package hrm implements the ANT+ heart rate monitor profile.
package hrm

import (
	"time"

	"github.com/robotalks/ant.go/pkg/ant/comm"
	"github.com/robotalks/ant.go/pkg/ant/stick"
)

// Channel parameters of heart rate monitors.
const (
	DeviceType    byte   = 0x78
	ChannelPeriod uint16 = 8070
	SearchTimeout byte   = 30
	RFFrequency   byte   = 57
)

// StaleTimeout is how long a heart rate reading remains valid.
const StaleTimeout = 5 * time.Second

// ChannelConfig returns the channel config pairing with deviceNumber,
// or any heart rate monitor if deviceNumber is zero.
func ChannelConfig(deviceNumber uint32) stick.ChannelConfig {
	return stick.ChannelConfig{
		ID:            stick.ChannelID{DeviceType: DeviceType, DeviceNumber: deviceNumber},
		Type:          stick.ChannelTypeBidirectionalReceive,
		Period:        ChannelPeriod,
		SearchTimeout: SearchTimeout,
		Frequency:     RFFrequency,
	}
}

// Monitor decodes broadcasts from a heart rate monitor.
type Monitor struct {
	stick.NopProfile

	// Now is the clock for timestamping measurements.
	Now func() time.Time

	channel *stick.Channel

	measurementTime     uint16
	prevMeasurementTime uint16
	heartBeats          byte
	heartRate           byte
	updatedAt           time.Time
}

// NewMonitor creates a Monitor without a channel.
func NewMonitor() *Monitor {
	return &Monitor{Now: time.Now}
}

// Open creates a channel on the stick searching for a heart rate monitor.
func Open(s *stick.Stick, deviceNumber uint32) (*Monitor, error) {
	m := NewMonitor()
	c, err := stick.NewChannel(s, ChannelConfig(deviceNumber), m)
	if err != nil {
		return nil, err
	}
	m.channel = c
	return m, nil
}

// Channel returns the underlying channel.
func (m *Monitor) Channel() *stick.Channel {
	return m.channel
}

// Close closes the channel.
func (m *Monitor) Close() error {
	if m.channel == nil {
		return nil
	}
	return m.channel.Close()
}

// OnMessageReceived implements stick.Profile.
func (m *Monitor) OnMessageReceived(c *stick.Channel, f comm.Frame) {
	data := f.Data()
	if f.ID() != comm.BroadcastData || len(data) < 9 {
		return
	}
	// bytes 4-7 of every data page carry the heart beat data.
	m.prevMeasurementTime = m.measurementTime
	m.measurementTime = uint16(data[5]) | uint16(data[6])<<8
	m.heartBeats = data[7]
	m.heartRate = data[8]
	m.updatedAt = m.Now()
}

// OnStateChanged implements stick.Profile.
func (m *Monitor) OnStateChanged(c *stick.Channel, from, to stick.State) {
	if to != stick.StateOpen {
		m.reset()
	}
}

func (m *Monitor) reset() {
	m.measurementTime, m.prevMeasurementTime = 0, 0
	m.heartBeats, m.heartRate = 0, 0
	m.updatedAt = time.Time{}
}

// InstantaneousHeartRate returns the last heart rate in bpm, or zero if
// there's no reading within StaleTimeout.
func (m *Monitor) InstantaneousHeartRate() int {
	if m.updatedAt.IsZero() || m.Now().Sub(m.updatedAt) > StaleTimeout {
		return 0
	}
	return int(m.heartRate)
}

// HeartBeatEventTime returns the time of the last heart beat event in
// 1/1024 seconds, and the one before it.
func (m *Monitor) HeartBeatEventTime() (last, prev uint16) {
	return m.measurementTime, m.prevMeasurementTime
}

// HeartBeatCount returns the rolling count of heart beats.
func (m *Monitor) HeartBeatCount() byte {
	return m.heartBeats
}
