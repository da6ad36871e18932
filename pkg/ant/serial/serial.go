// Package serial exposes ANT sticks attached through a serial port as
// transfer endpoints.
package serial

import (
	"context"
	"io"
	"time"

	goserial "go.bug.st/serial"
)

// DefaultBaudRate is the rate of ANT USB1 sticks and most ANT modules.
const DefaultBaudRate = 115200

// pollInterval bounds each read so cancellation is noticed.
const pollInterval = 50 * time.Millisecond

// Port is a serial port implementing comm.InEndpoint and comm.OutEndpoint.
type Port struct {
	rw io.ReadWriteCloser
}

// Open opens the serial port with 8N1 framing.
func Open(name string, baudRate int) (*Port, error) {
	mode := &goserial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	}
	port, err := goserial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if err = port.SetReadTimeout(pollInterval); err != nil {
		port.Close()
		return nil, err
	}
	return &Port{rw: port}, nil
}

// ReadContext implements comm.InEndpoint. It returns once some bytes are
// read or ctx is done.
func (p *Port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		// a read timeout returns no bytes without error.
		n, err := p.rw.Read(buf)
		if err != nil || n > 0 {
			return n, err
		}
	}
}

// WriteContext implements comm.OutEndpoint.
func (p *Port) WriteContext(ctx context.Context, buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, err := p.rw.Write(buf[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Close closes the port.
func (p *Port) Close() error {
	return p.rw.Close()
}
