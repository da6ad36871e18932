package stick

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/ant.go/pkg/ant/comm"
)

// AntPlusNetworkKey is the network key of ANT+ managed networks.
var AntPlusNetworkKey = [8]byte{0xB9, 0xA5, 0x21, 0xFB, 0xBD, 0x72, 0xC3, 0x45}

// Stick is the radio link over one ANT USB stick. It owns the transfers,
// the registry of channels and routes received frames to channels.
//
// Stick is not safe for concurrent use. All calls, including those made
// through its channels, must be serialized by the caller.
type Stick struct {
	reader  *comm.Reader
	writer  *comm.Writer
	config  Config
	metrics *Metrics

	delayed  []comm.Frame
	channels map[byte]*Channel

	serialNumber uint32
	version      string
	maxChannels  int
	maxNetworks  int
}

// WriteMessage writes a single frame.
func (s *Stick) WriteMessage(f comm.Frame) error {
	if glog.V(2) {
		glog.Infof("ANT write %s", f)
	}
	if err := s.writer.WriteFrame(f); err != nil {
		return err
	}
	s.metrics.written(f)
	return nil
}

// ReadMessage blocks until a frame which is not channel traffic is read.
// Channel traffic read in the meantime is queued and dispatched by Tick.
func (s *Stick) ReadMessage() (comm.Frame, error) {
	for {
		f, err := s.reader.BlockingNextFrame()
		if err != nil {
			return nil, err
		}
		s.metrics.read(f)
		if !isChannelTraffic(f) {
			if glog.V(2) {
				glog.Infof("ANT read %s", f)
			}
			return f, nil
		}
		if glog.V(3) {
			glog.Infof("ANT defer %s", f)
		}
		s.metrics.deferred(f)
		s.delayed = append(s.delayed, f)
	}
}

// isChannelTraffic tells if a frame belongs to asynchronous channel
// processing rather than a reply to a synchronous request.
func isChannelTraffic(f comm.Frame) bool {
	switch f.ID() {
	case comm.BroadcastData, comm.BurstTransferData, comm.ResponseChannelID:
		return true
	case comm.ChannelResponse:
		data := f.Data()
		if len(data) < 2 {
			return false
		}
		switch comm.MessageID(data[1]) {
		case 0x01, comm.AcknowledgeData, comm.BurstTransferData:
			return true
		}
	}
	return false
}

// Tick makes progress without blocking for long: it dispatches one
// deferred frame, or one frame read within the tick timeout, to its
// channel. Errors raised by the channel are wrapped in *ChannelError.
func (s *Stick) Tick() error {
	var f comm.Frame
	if len(s.delayed) > 0 {
		f = s.delayed[0]
		s.delayed[0] = nil
		s.delayed = s.delayed[1:]
	} else {
		var err error
		if f, err = s.reader.PollNextFrame(s.config.TickTimeout); err != nil || f == nil {
			return err
		}
		s.metrics.read(f)
	}
	return s.route(f)
}

func (s *Stick) route(f comm.Frame) error {
	var c *Channel
	switch f.ID() {
	case comm.BroadcastData, comm.AcknowledgeData, comm.BurstTransferData,
		comm.ChannelResponse, comm.ResponseChannelID, comm.ResponseChannelStatus:
		if num, ok := f.Channel(); ok {
			c = s.channels[num]
		}
	}
	if c == nil {
		if glog.V(2) {
			glog.Infof("ANT drop %s", f)
		}
		s.metrics.dropped(f)
		return nil
	}
	if err := c.HandleMessage(f); err != nil {
		return &ChannelError{Number: c.Number(), Err: err}
	}
	return nil
}

// Reset resets the device and waits for the startup message.
func (s *Stick) Reset() error {
	if err := s.WriteMessage(comm.BuildFrame(comm.ResetSystem, 0)); err != nil {
		return errors.Wrap(err, "reset")
	}
	for i := 0; i < s.config.ResetAttempts; i++ {
		f, err := s.ReadMessage()
		if errors.Is(err, comm.ErrTimeout) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "reset")
		}
		if f.ID() == comm.StartupMessage {
			s.delayed = nil
			return nil
		}
		glog.V(1).Infof("ANT waiting for startup, got %s", f)
	}
	return errors.Wrap(ErrProtocolViolation, "no startup message after reset")
}

// QueryInfo reads the serial number, version and capabilities.
func (s *Stick) QueryInfo() error {
	f, err := s.request(comm.ResponseSerialNumber)
	if err != nil {
		return errors.Wrap(err, "query serial number")
	}
	if data := f.Data(); len(data) >= 4 {
		s.serialNumber = binary.LittleEndian.Uint32(data)
	} else {
		return &ResponseError{Request: comm.RequestMessage, Frame: f}
	}

	if f, err = s.request(comm.ResponseVersion); err != nil {
		return errors.Wrap(err, "query version")
	}
	data := f.Data()
	if n := bytes.IndexByte(data, 0); n >= 0 {
		data = data[:n]
	}
	s.version = string(data)

	if f, err = s.request(comm.ResponseCapabilities); err != nil {
		return errors.Wrap(err, "query capabilities")
	}
	if data := f.Data(); len(data) >= 2 {
		s.maxChannels, s.maxNetworks = int(data[0]), int(data[1])
	} else {
		return &ResponseError{Request: comm.RequestMessage, Frame: f}
	}
	glog.Infof("ANT stick serial %d version %q channels %d networks %d",
		s.serialNumber, s.version, s.maxChannels, s.maxNetworks)
	return nil
}

// request sends REQUEST_MESSAGE and reads the reply with the requested id.
func (s *Stick) request(id comm.MessageID) (comm.Frame, error) {
	if err := s.WriteMessage(comm.BuildFrame(comm.RequestMessage, 0, byte(id))); err != nil {
		return nil, err
	}
	f, err := s.ReadMessage()
	if err != nil {
		return nil, err
	}
	if f.ID() != id {
		return nil, &ResponseError{Request: comm.RequestMessage, Frame: f}
	}
	return f, nil
}

// SetNetworkKey configures the key of network 0.
func (s *Stick) SetNetworkKey(key [8]byte) error {
	return errors.Wrap(s.command(comm.SetNetworkKey, append([]byte{0}, key[:]...)...), "set network key")
}

// command sends a configuration command and validates the channel
// response. The first byte of payload is the channel or network number
// expected in the response.
func (s *Stick) command(id comm.MessageID, payload ...byte) error {
	if err := s.WriteMessage(comm.BuildFrame(id, payload...)); err != nil {
		return err
	}
	f, err := s.ReadMessage()
	if err != nil {
		return err
	}
	return checkResponse(f, payload[0], id)
}

func checkResponse(f comm.Frame, channel byte, id comm.MessageID) error {
	data := f.Data()
	if f.ID() != comm.ChannelResponse || len(data) < 3 ||
		data[0] != channel || comm.MessageID(data[1]) != id ||
		comm.ChannelEvent(data[2]) != comm.ResponseNoError {
		return &ResponseError{Request: id, Frame: f}
	}
	return nil
}

// NextFreeChannelSlot returns the lowest channel number not registered.
func (s *Stick) NextFreeChannelSlot() (byte, bool) {
	for n := 0; n < s.maxChannels; n++ {
		if _, ok := s.channels[byte(n)]; !ok {
			return byte(n), true
		}
	}
	return 0, false
}

// RegisterChannel adds a channel for routing.
func (s *Stick) RegisterChannel(c *Channel) error {
	if existing, ok := s.channels[c.Number()]; ok && existing != c {
		return errors.Wrapf(ErrSlotInUse, "channel %d", c.Number())
	}
	s.channels[c.Number()] = c
	return nil
}

// UnregisterChannel removes a channel from routing.
func (s *Stick) UnregisterChannel(c *Channel) {
	if s.channels[c.Number()] == c {
		delete(s.channels, c.Number())
	}
}

// Channels returns the registered channels ordered by number.
func (s *Stick) Channels() []*Channel {
	channels := make([]*Channel, 0, len(s.channels))
	for _, c := range s.channels {
		channels = append(channels, c)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Number() < channels[j].Number() })
	return channels
}

// MaxChannels returns the number of channels supported by the device.
func (s *Stick) MaxChannels() int {
	return s.maxChannels
}

// MaxNetworks returns the number of networks supported by the device.
func (s *Stick) MaxNetworks() int {
	return s.maxNetworks
}

// SerialNumber returns the serial number of the device.
func (s *Stick) SerialNumber() uint32 {
	return s.serialNumber
}

// Version returns the firmware version string.
func (s *Stick) Version() string {
	return s.version
}

// Close cancels in-flight transfers and waits for them to complete.
// Registered channels are left as they are.
func (s *Stick) Close() error {
	s.reader.Close()
	s.writer.Close()
	return nil
}
