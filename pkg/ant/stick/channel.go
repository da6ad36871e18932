package stick

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/ant.go/pkg/ant/comm"
)

// State is the state of a channel.
type State int

// Channel states.
const (
	StateSearching State = iota
	StateOpen
	StateClosed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ChannelID identifies the remote device of a channel. Zero fields are
// wildcards.
type ChannelID struct {
	DeviceType   byte
	DeviceNumber uint32 // 20 bits
}

// String implements fmt.Stringer.
func (id ChannelID) String() string {
	return fmt.Sprintf("%d/%d", id.DeviceType, id.DeviceNumber)
}

// Channel types used with ASSIGN_CHANNEL.
const (
	ChannelTypeBidirectionalReceive  byte = 0x00
	ChannelTypeBidirectionalTransmit byte = 0x10
)

// ChannelConfig specifies how a channel is assigned and opened.
type ChannelConfig struct {
	ID            ChannelID
	Type          byte
	Network       byte
	Period        uint16
	SearchTimeout byte
	Frequency     byte
}

// Profile interprets the traffic of a channel for a kind of device.
type Profile interface {
	// OnMessageReceived is called with broadcast data and any frame the
	// channel doesn't handle itself.
	OnMessageReceived(c *Channel, f comm.Frame)
	// OnStateChanged is called after the channel state changed.
	OnStateChanged(c *Channel, from, to State)
	// OnAcknowledgedDataReply reports the result of an acknowledged data
	// send queued with tag.
	OnAcknowledgedDataReply(c *Channel, tag int, event comm.ChannelEvent)
}

// NopProfile implements Profile doing nothing.
type NopProfile struct{}

// OnMessageReceived implements Profile.
func (NopProfile) OnMessageReceived(*Channel, comm.Frame) {}

// OnStateChanged implements Profile.
func (NopProfile) OnStateChanged(*Channel, State, State) {}

// OnAcknowledgedDataReply implements Profile.
func (NopProfile) OnAcknowledgedDataReply(*Channel, int, comm.ChannelEvent) {}

type ackData struct {
	tag     int
	payload []byte
}

// Channel is one radio channel of a Stick bound to a Profile.
type Channel struct {
	stick   *Stick
	profile Profile
	number  byte
	config  ChannelConfig

	id             ChannelID
	state          State
	idRequested    bool
	ackQueue       []ackData
	ackOutstanding bool
}

// NewChannel assigns, configures and opens a channel on the lowest free
// slot and registers it with the stick. On failure nothing is registered.
func NewChannel(s *Stick, conf ChannelConfig, p Profile) (*Channel, error) {
	if p == nil {
		p = NopProfile{}
	}
	num, ok := s.NextFreeChannelSlot()
	if !ok {
		return nil, ErrNoFreeChannel
	}
	c := &Channel{
		stick:   s,
		profile: p,
		number:  num,
		config:  conf,
		id:      conf.ID,
		state:   StateSearching,
	}
	if err := s.command(comm.AssignChannel, num, conf.Type, conf.Network); err != nil {
		return nil, errors.Wrapf(err, "assign channel %d", num)
	}
	if err := c.configure(); err != nil {
		if e := s.command(comm.UnassignChannel, num); e != nil {
			glog.Warningf("ANT unassign channel %d error: %v", num, e)
		}
		return nil, errors.Wrapf(err, "open channel %d", num)
	}
	if err := s.RegisterChannel(c); err != nil {
		return nil, err
	}
	glog.Infof("ANT channel %d searching for %s", num, conf.ID)
	return c, nil
}

func (c *Channel) configure() error {
	num, conf := c.number, c.config
	devnum := conf.ID.DeviceNumber
	steps := []struct {
		id      comm.MessageID
		payload []byte
	}{
		{comm.SetChannelID, []byte{num, byte(devnum), byte(devnum >> 8), conf.ID.DeviceType, byte(devnum>>12) & 0xF0}},
		{comm.SetChannelPeriod, []byte{num, byte(conf.Period), byte(conf.Period >> 8)}},
		{comm.SetChannelSearchTimeout, []byte{num, conf.SearchTimeout}},
		{comm.SetChannelRFFreq, []byte{num, conf.Frequency}},
		{comm.OpenChannel, []byte{num}},
	}
	for _, step := range steps {
		if err := c.stick.command(step.id, step.payload...); err != nil {
			return err
		}
	}
	return nil
}

// Number returns the channel number.
func (c *Channel) Number() byte {
	return c.number
}

// State returns the current state.
func (c *Channel) State() State {
	return c.state
}

// ID returns the identity of the remote device.
func (c *Channel) ID() ChannelID {
	return c.id
}

// Config returns the config the channel was created with.
func (c *Channel) Config() ChannelConfig {
	return c.config
}

// Profile returns the profile.
func (c *Channel) Profile() Profile {
	return c.profile
}

// PendingAcknowledgedData returns the number of queued acknowledged data
// including the one outstanding.
func (c *Channel) PendingAcknowledgedData() int {
	return len(c.ackQueue)
}

// HandleMessage dispatches a frame routed to this channel.
func (c *Channel) HandleMessage(f comm.Frame) error {
	if c.state == StateClosed {
		return nil
	}
	switch f.ID() {
	case comm.ChannelResponse:
		c.onChannelResponse(f)
	case comm.BroadcastData:
		return c.onBroadcastData(f)
	case comm.ResponseChannelID:
		return c.onChannelID(f)
	default:
		c.profile.OnMessageReceived(c, f)
	}
	return nil
}

func (c *Channel) onChannelResponse(f comm.Frame) {
	data := f.Data()
	if len(data) < 3 {
		glog.V(1).Infof("ANT channel %d malformed %s", c.number, f)
		return
	}
	if data[1] != 0x01 {
		glog.V(1).Infof("ANT channel %d unexpected reply to %s: %s",
			c.number, comm.MessageID(data[1]), comm.ChannelEvent(data[2]))
		return
	}
	event := comm.ChannelEvent(data[2])
	c.stick.metrics.event(event)
	switch event {
	case comm.EventRxSearchTimeout, comm.ResponseNoError:
	case comm.EventChannelClosed:
		c.setState(StateClosed)
		if err := c.stick.command(comm.UnassignChannel, c.number); err != nil {
			glog.Warningf("ANT unassign channel %d error: %v", c.number, err)
		}
	case comm.EventRxFailGoToSearch:
		c.id.DeviceNumber = 0
		c.setState(StateSearching)
	default:
		if !c.ackOutstanding {
			glog.V(1).Infof("ANT channel %d event: %s", c.number, event)
			return
		}
		head := c.ackQueue[0]
		c.ackQueue[0] = ackData{}
		c.ackQueue = c.ackQueue[1:]
		c.ackOutstanding = false
		c.profile.OnAcknowledgedDataReply(c, head.tag, event)
	}
}

func (c *Channel) onBroadcastData(f comm.Frame) error {
	if c.state != StateOpen && !c.idRequested {
		err := c.stick.WriteMessage(comm.BuildFrame(comm.RequestMessage, c.number, byte(comm.ResponseChannelID)))
		if err != nil {
			return err
		}
		c.idRequested = true
	}
	if len(c.ackQueue) > 0 && !c.ackOutstanding {
		head := c.ackQueue[0]
		err := c.stick.WriteMessage(comm.BuildFrame(comm.AcknowledgeData, append([]byte{c.number}, head.payload...)...))
		if err != nil {
			return err
		}
		c.ackOutstanding = true
	}
	c.profile.OnMessageReceived(c, f)
	return nil
}

func (c *Channel) onChannelID(f comm.Frame) error {
	data := f.Data()
	if len(data) < 5 || data[0] != c.number {
		return &ResponseError{Request: comm.RequestMessage, Frame: f}
	}
	c.idRequested = false
	got := ChannelID{
		DeviceType:   data[3],
		DeviceNumber: uint32(data[1]) | uint32(data[2])<<8 | uint32(data[4]>>4)<<16,
	}
	id := c.id
	if id.DeviceNumber == 0 {
		id.DeviceNumber = got.DeviceNumber
	}
	if id.DeviceType == 0 {
		id.DeviceType = got.DeviceType
	}
	if id != got {
		return &IdentityError{Channel: c.number, Known: c.id, Got: got}
	}
	c.id = id
	if id.DeviceNumber != 0 && c.state == StateSearching {
		c.setState(StateOpen)
	}
	return nil
}

func (c *Channel) setState(state State) {
	if state == c.state {
		return
	}
	from := c.state
	c.state = state
	glog.Infof("ANT channel %d %s: %s -> %s", c.number, c.id, from, state)
	c.profile.OnStateChanged(c, from, state)
}

// SendAcknowledgedData queues payload to be sent as acknowledged data.
// It's sent after the next broadcast from the device and the result is
// reported to Profile.OnAcknowledgedDataReply with tag.
func (c *Channel) SendAcknowledgedData(tag int, payload []byte) {
	c.ackQueue = append(c.ackQueue, ackData{tag: tag, payload: append([]byte(nil), payload...)})
}

// Data page request, common page 70.
const pageRequestDataPage = 0x46

// RequestDataPage asks the device to send a data page transmitCount times.
// The request is tagged with page.
func (c *Channel) RequestDataPage(page byte, transmitCount byte) {
	c.SendAcknowledgedData(int(page), []byte{
		pageRequestDataPage, 0xFF, 0xFF, 0xFF, 0xFF, transmitCount, page, 0x01,
	})
}

// Close closes the channel and unregisters it from the stick. If the
// channel isn't already closed, CLOSE_CHANNEL and UNASSIGN_CHANNEL are sent
// and their failures ignored. It's safe to call Close more than once.
func (c *Channel) Close() error {
	if c.state != StateClosed {
		c.setState(StateClosed)
		if err := c.stick.command(comm.CloseChannel, c.number); err != nil {
			glog.Warningf("ANT close channel %d error: %v", c.number, err)
		} else if err = c.stick.command(comm.UnassignChannel, c.number); err != nil {
			glog.Warningf("ANT unassign channel %d error: %v", c.number, err)
		}
	}
	c.stick.UnregisterChannel(c)
	return nil
}
