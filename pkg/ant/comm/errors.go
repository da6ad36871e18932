package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates no frame was received within the read timeout.
	// It is recoverable and the caller may try again.
	ErrTimeout = errors.New("read timed out")
	// ErrWriteTimeout indicates a write didn't complete within the timeout
	// and has been cancelled.
	ErrWriteTimeout = errors.New("write timed out")
	// ErrBadChecksum indicates a corrupted frame in the received stream.
	ErrBadChecksum = errors.New("bad checksum")
)

// TransferError is reported when a transfer completes with a failure.
type TransferError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransferError) Error() string {
	return fmt.Sprintf("%s transfer failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *TransferError) Unwrap() error {
	return e.Err
}

// Cause implements the causer interface of github.com/pkg/errors.
func (e *TransferError) Cause() error {
	return e.Err
}
