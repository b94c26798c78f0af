// Package serialmux owns the serial link to the LiDAR: port options, opening a
// real port through go.bug.st/serial, and draining whatever bytes have arrived
// without blocking the caller.
package serialmux

import (
	"errors"
	"io"
	"time"

	"go.bug.st/serial"
)

// ErrPortClosed is returned by reads on a port that has been closed.
var ErrPortClosed = errors.New("serial port closed")

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with timeout capabilities.
// PollingPort relies on it to keep reads short.
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// Opener opens a serial port at path with the given mode.
type Opener func(path string, mode *serial.Mode) (SerialPorter, error)

// OpenReal opens a hardware port with go.bug.st/serial.
func OpenReal(path string, mode *serial.Mode) (SerialPorter, error) {
	return serial.Open(path, mode)
}
