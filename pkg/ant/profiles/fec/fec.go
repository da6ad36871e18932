// Package fec implements the ANT+ fitness equipment control profile for
// bike trainers.
package fec

import (
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/ant.go/pkg/ant/comm"
	"github.com/robotalks/ant.go/pkg/ant/stick"
)

// Channel parameters of fitness equipment.
const (
	DeviceType    byte   = 0x11
	ChannelPeriod uint16 = 8192
	SearchTimeout byte   = 30
	RFFrequency   byte   = 57
)

// StaleTimeout is how long a reading remains valid.
const StaleTimeout = 5 * time.Second

// Data pages.
const (
	PageGeneralFEData   byte = 0x10
	PageTrainerData     byte = 0x19
	PageTrackResistance byte = 0x33
	PageCapabilities    byte = 0x36
)

// Slope range accepted by track resistance in percent.
const (
	MinSlope = -200.0
	MaxSlope = 200.0
)

// ChannelConfig returns the channel config pairing with deviceNumber,
// or any fitness equipment if deviceNumber is zero.
func ChannelConfig(deviceNumber uint32) stick.ChannelConfig {
	return stick.ChannelConfig{
		ID:            stick.ChannelID{DeviceType: DeviceType, DeviceNumber: deviceNumber},
		Type:          stick.ChannelTypeBidirectionalReceive,
		Period:        ChannelPeriod,
		SearchTimeout: SearchTimeout,
		Frequency:     RFFrequency,
	}
}

// Capabilities are reported in page 54.
type Capabilities struct {
	MaxResistance uint16 // in Newtons
	Modes         byte
}

// Supported training modes in Capabilities.Modes.
const (
	ModeBasicResistance byte = 0x01
	ModeTargetPower     byte = 0x02
	ModeSimulation      byte = 0x04
)

// Trainer decodes a fitness equipment controller and controls its
// resistance.
type Trainer struct {
	// Now is the clock for timestamping readings.
	Now func() time.Time

	channel *stick.Channel

	equipmentType    byte
	elapsedTime      time.Duration
	distance         uint32
	lastElapsed      byte
	lastDistance     byte
	speed            float64 // m/s
	heartRate        byte
	cadence          byte
	power            uint16
	accumulatedPower uint16
	feState          byte
	generalAt        time.Time
	trainerAt        time.Time

	capabilities      Capabilities
	capabilitiesKnown bool

	slope          float64
	slopeConfirmed bool
}

// NewTrainer creates a Trainer without a channel.
func NewTrainer() *Trainer {
	return &Trainer{Now: time.Now}
}

// Open creates a channel on the stick searching for fitness equipment.
func Open(s *stick.Stick, deviceNumber uint32) (*Trainer, error) {
	t := NewTrainer()
	c, err := stick.NewChannel(s, ChannelConfig(deviceNumber), t)
	if err != nil {
		return nil, err
	}
	t.channel = c
	return t, nil
}

// Channel returns the underlying channel.
func (t *Trainer) Channel() *stick.Channel {
	return t.channel
}

// Close closes the channel.
func (t *Trainer) Close() error {
	if t.channel == nil {
		return nil
	}
	return t.channel.Close()
}

// OnMessageReceived implements stick.Profile.
func (t *Trainer) OnMessageReceived(c *stick.Channel, f comm.Frame) {
	data := f.Data()
	if f.ID() != comm.BroadcastData || len(data) < 9 {
		return
	}
	page := data[1:9]
	switch page[0] {
	case PageGeneralFEData:
		t.decodeGeneral(page)
	case PageTrainerData:
		t.decodeTrainer(page)
	case PageCapabilities:
		t.capabilities = Capabilities{
			MaxResistance: uint16(page[5]) | uint16(page[6])<<8,
			Modes:         page[7],
		}
		t.capabilitiesKnown = true
	}
}

func (t *Trainer) decodeGeneral(page []byte) {
	now := t.Now()
	if !t.generalAt.IsZero() {
		// elapsed time and distance are rollover counters.
		t.elapsedTime += time.Duration(page[2]-t.lastElapsed) * 250 * time.Millisecond
		t.distance += uint32(page[3] - t.lastDistance)
	}
	t.lastElapsed, t.lastDistance = page[2], page[3]
	t.equipmentType = page[1] & 0x1F
	t.speed = float64(uint16(page[4])|uint16(page[5])<<8) / 1000
	t.heartRate = page[6]
	t.feState = page[7] >> 4
	t.generalAt = now
}

func (t *Trainer) decodeTrainer(page []byte) {
	t.cadence = page[2]
	t.accumulatedPower = uint16(page[3]) | uint16(page[4])<<8
	t.power = uint16(page[5]) | uint16(page[6]&0x0F)<<8
	t.feState = page[7] >> 4
	t.trainerAt = t.Now()
}

// OnStateChanged implements stick.Profile.
func (t *Trainer) OnStateChanged(c *stick.Channel, from, to stick.State) {
	if to == stick.StateOpen {
		if !t.capabilitiesKnown {
			c.RequestDataPage(PageCapabilities, 2)
		}
		return
	}
	now := t.Now
	*t = Trainer{Now: now, channel: t.channel, slope: t.slope}
}

// OnAcknowledgedDataReply implements stick.Profile.
func (t *Trainer) OnAcknowledgedDataReply(c *stick.Channel, tag int, event comm.ChannelEvent) {
	switch byte(tag) {
	case PageTrackResistance:
		t.slopeConfirmed = event == comm.EventTransferTxCompleted
		if !t.slopeConfirmed {
			glog.Warningf("FE-C channel %d set slope %.2f%%: %s", c.Number(), t.slope, event)
		}
	default:
		glog.V(1).Infof("FE-C channel %d page %d request: %s", c.Number(), tag, event)
	}
}

// SetSlope sets the grade of simulated track in percent. The value is
// clamped to [MinSlope, MaxSlope] and sent with the next broadcast.
// Without a channel the slope is only recorded.
func (t *Trainer) SetSlope(slope float64) {
	slope = math.Max(MinSlope, math.Min(MaxSlope, slope))
	t.slope, t.slopeConfirmed = slope, false
	if t.channel == nil {
		return
	}
	raw := uint16(math.Round((slope - MinSlope) * 100))
	t.channel.SendAcknowledgedData(int(PageTrackResistance), []byte{
		PageTrackResistance, 0xFF, 0xFF, 0xFF, 0xFF, byte(raw), byte(raw >> 8), 0xFF,
	})
}

// Slope returns the last slope set and if it's confirmed by the trainer.
func (t *Trainer) Slope() (float64, bool) {
	return t.slope, t.slopeConfirmed
}

func (t *Trainer) fresh(at time.Time) bool {
	return !at.IsZero() && t.Now().Sub(at) <= StaleTimeout
}

// InstantPower returns the instantaneous power in watts.
func (t *Trainer) InstantPower() (int, bool) {
	if !t.fresh(t.trainerAt) || t.power == 0xFFF {
		return 0, false
	}
	return int(t.power), true
}

// AccumulatedPower returns the rolling accumulated power in watts.
func (t *Trainer) AccumulatedPower() uint16 {
	return t.accumulatedPower
}

// Cadence returns the cadence in rpm.
func (t *Trainer) Cadence() (int, bool) {
	if !t.fresh(t.trainerAt) || t.cadence == 0xFF {
		return 0, false
	}
	return int(t.cadence), true
}

// Speed returns the speed in m/s.
func (t *Trainer) Speed() (float64, bool) {
	if !t.fresh(t.generalAt) || t.speed == float64(0xFFFF)/1000 {
		return 0, false
	}
	return t.speed, true
}

// HeartRate returns the heart rate reported by the equipment.
func (t *Trainer) HeartRate() (int, bool) {
	if !t.fresh(t.generalAt) || t.heartRate == 0xFF {
		return 0, false
	}
	return int(t.heartRate), true
}

// ElapsedTime returns the time elapsed since the equipment started.
func (t *Trainer) ElapsedTime() time.Duration {
	return t.elapsedTime
}

// Distance returns the distance traveled in meters.
func (t *Trainer) Distance() uint32 {
	return t.distance
}

// EquipmentType returns the type field of the general page.
func (t *Trainer) EquipmentType() byte {
	return t.equipmentType
}

// FEState returns the state field of the equipment.
func (t *Trainer) FEState() byte {
	return t.feState
}

// Capabilities returns the capabilities if they've been received.
func (t *Trainer) Capabilities() (Capabilities, bool) {
	return t.capabilities, t.capabilitiesKnown
}
