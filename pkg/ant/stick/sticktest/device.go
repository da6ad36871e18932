// Package sticktest provides a simulated ANT stick for tests.
package sticktest

import (
	"context"
	"sync"

	"github.com/robotalks/ant.go/pkg/ant/comm"
)

// Default identity reported by Device.
const (
	SerialNumber = 12345
	Version      = "AJK1.04RAF"
)

// ResponderFunc produces the frames replied to a written frame.
// It returns false to fall back to the default replies.
type ResponderFunc func(f comm.Frame) ([]comm.Frame, bool)

// Device simulates an ANT stick. It implements comm.InEndpoint and
// comm.OutEndpoint. Written frames are recorded and answered:
// RESET_SYSTEM with a startup message, REQUEST_MESSAGE for serial number,
// version and capabilities with the matching response, and any other
// command except data with a channel response carrying the status from
// Status (zero by default).
type Device struct {
	MaxChannels byte
	MaxNetworks byte
	Responder   ResponderFunc

	lock    sync.Mutex
	written []comm.Frame
	status  map[comm.MessageID]comm.ChannelEvent
	readCh  chan []byte
	writeCh chan comm.Frame
}

// NewDevice creates a Device with 8 channels.
func NewDevice() *Device {
	return &Device{
		MaxChannels: 8,
		MaxNetworks: 3,
		status:      make(map[comm.MessageID]comm.ChannelEvent),
		readCh:      make(chan []byte, 1024),
		writeCh:     make(chan comm.Frame, 1024),
	}
}

// ReadContext implements comm.InEndpoint.
func (d *Device) ReadContext(ctx context.Context, buf []byte) (int, error) {
	select {
	case b := <-d.readCh:
		return copy(buf, b), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// WriteContext implements comm.OutEndpoint.
func (d *Device) WriteContext(ctx context.Context, buf []byte) (int, error) {
	f := append(comm.Frame(nil), buf...)
	d.lock.Lock()
	d.written = append(d.written, f)
	responder := d.Responder
	d.lock.Unlock()
	replies, ok := []comm.Frame(nil), false
	if responder != nil {
		replies, ok = responder(f)
	}
	if !ok {
		replies = d.reply(f)
	}
	d.Inject(replies...)
	d.writeCh <- f
	return len(buf), nil
}

func (d *Device) reply(f comm.Frame) []comm.Frame {
	data := f.Data()
	switch f.ID() {
	case comm.ResetSystem:
		return []comm.Frame{comm.BuildFrame(comm.StartupMessage, 0x20)}
	case comm.RequestMessage:
		switch comm.MessageID(data[1]) {
		case comm.ResponseSerialNumber:
			sn := uint32(SerialNumber)
			return []comm.Frame{comm.BuildFrame(comm.ResponseSerialNumber,
				byte(sn), byte(sn>>8), byte(sn>>16), byte(sn>>24))}
		case comm.ResponseVersion:
			return []comm.Frame{comm.BuildFrame(comm.ResponseVersion, append([]byte(Version), 0)...)}
		case comm.ResponseCapabilities:
			return []comm.Frame{comm.BuildFrame(comm.ResponseCapabilities, d.MaxChannels, d.MaxNetworks, 0, 0, 0, 0)}
		}
		return nil
	case comm.BroadcastData, comm.AcknowledgeData, comm.BurstTransferData:
		return nil
	}
	d.lock.Lock()
	status := d.status[f.ID()]
	d.lock.Unlock()
	return []comm.Frame{ChannelResponse(data[0], f.ID(), status)}
}

// SetStatus sets the status replied to command id.
func (d *Device) SetStatus(id comm.MessageID, status comm.ChannelEvent) {
	d.lock.Lock()
	d.status[id] = status
	d.lock.Unlock()
}

// Inject queues frames to be read, each in its own transfer.
func (d *Device) Inject(frames ...comm.Frame) {
	for _, f := range frames {
		d.readCh <- []byte(f)
	}
}

// Written returns all frames written so far.
func (d *Device) Written() []comm.Frame {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]comm.Frame(nil), d.written...)
}

// WrittenWith returns written frames with the message id.
func (d *Device) WrittenWith(id comm.MessageID) []comm.Frame {
	var frames []comm.Frame
	for _, f := range d.Written() {
		if f.ID() == id {
			frames = append(frames, f)
		}
	}
	return frames
}

// WriteChan receives each written frame.
func (d *Device) WriteChan() <-chan comm.Frame {
	return d.writeCh
}

// ClearWritten forgets written frames.
func (d *Device) ClearWritten() {
	d.lock.Lock()
	d.written = nil
	d.lock.Unlock()
	for {
		select {
		case <-d.writeCh:
		default:
			return
		}
	}
}

// ChannelResponse builds a response to a command.
func ChannelResponse(channel byte, id comm.MessageID, status comm.ChannelEvent) comm.Frame {
	return comm.BuildFrame(comm.ChannelResponse, channel, byte(id), byte(status))
}

// ChannelEvent builds a channel event.
func ChannelEvent(channel byte, event comm.ChannelEvent) comm.Frame {
	return comm.BuildFrame(comm.ChannelResponse, channel, 0x01, byte(event))
}

// Broadcast builds a broadcast data frame.
func Broadcast(channel byte, payload ...byte) comm.Frame {
	data := make([]byte, 9)
	data[0] = channel
	copy(data[1:], payload)
	return comm.BuildFrame(comm.BroadcastData, data...)
}

// ChannelIDResponse builds the channel id response for a device.
func ChannelIDResponse(channel, deviceType byte, deviceNumber uint32) comm.Frame {
	return comm.BuildFrame(comm.ResponseChannelID, channel,
		byte(deviceNumber), byte(deviceNumber>>8), deviceType, byte(deviceNumber>>12)&0xF0|0x01)
}
