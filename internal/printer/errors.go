package printer

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceNotFound means no physical device matched during connect.
	ErrDeviceNotFound = errors.New("printer device not found")

	// ErrEndpointNotFound means a matching USB device was opened but its
	// interface is missing a required bulk endpoint.
	ErrEndpointNotFound = errors.New("required USB endpoint not found")

	// ErrNotConnected means a print or test operation was attempted
	// without an active session.
	ErrNotConnected = errors.New("printer not connected")

	// ErrReadNotSupported means the transport has no read-back channel
	// (the spooler hands bytes to the OS and never hears back).
	ErrReadNotSupported = errors.New("transport does not support read-back")
)

// TransportError wraps an I/O failure or timeout on an open connection.
// It is never retried by this package; callers decide what to do.
type TransportError struct {
	Transport string // "usb", "serial", "spooler", "simulated"
	Op        string // "write", "read", "open", "close"
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %s failed: %v", e.Transport, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func transportErr(transport, op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Transport: transport, Op: op, Err: err}
}
