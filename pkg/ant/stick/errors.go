package stick

import (
	"errors"
	"fmt"

	"github.com/robotalks/ant.go/pkg/ant/comm"
)

var (
	// ErrProtocolViolation indicates a response doesn't match the request
	// or a conflicting device identity was reported.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrNoFreeChannel indicates all channel slots are in use.
	ErrNoFreeChannel = errors.New("no free channel")
	// ErrSlotInUse indicates a channel is registered on an occupied slot.
	ErrSlotInUse = errors.New("channel slot in use")
)

// ResponseError is a reply which doesn't match the request.
type ResponseError struct {
	Request comm.MessageID
	Frame   comm.Frame
}

// Error implements error.
func (e *ResponseError) Error() string {
	if e.Frame.ID() == comm.ChannelResponse {
		if data := e.Frame.Data(); len(data) >= 3 {
			return fmt.Sprintf("unexpected response to %s: channel %d %s %s",
				e.Request, data[0], comm.MessageID(data[1]), comm.ChannelEvent(data[2]))
		}
	}
	return fmt.Sprintf("unexpected response to %s: %s", e.Request, e.Frame)
}

// Unwrap returns ErrProtocolViolation.
func (e *ResponseError) Unwrap() error {
	return ErrProtocolViolation
}

// IdentityError indicates the paired device reported a different identity.
type IdentityError struct {
	Channel byte
	Known   ChannelID
	Got     ChannelID
}

// Error implements error.
func (e *IdentityError) Error() string {
	return fmt.Sprintf("channel %d paired with %s, got %s", e.Channel, e.Known, e.Got)
}

// Unwrap returns ErrProtocolViolation.
func (e *IdentityError) Unwrap() error {
	return ErrProtocolViolation
}

// ChannelError wraps an error raised by a channel while dispatching.
type ChannelError struct {
	Number byte
	Err    error
}

// Error implements error.
func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %d: %v", e.Number, e.Err)
}

// Unwrap returns the wrapped error.
func (e *ChannelError) Unwrap() error {
	return e.Err
}
