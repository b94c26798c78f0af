package serialmux

import (
	"fmt"
	"time"
)

// DefaultPollTimeout bounds each read inside ReadAvailable.
const DefaultPollTimeout = time.Millisecond

// OpenPolling opens the hardware port at path and wraps it for non-blocking
// draining.
func OpenPolling(path string, opts PortOptions) (*PollingPort, error) {
	return openPollingWith(OpenReal, path, opts)
}

func openPollingWith(open Opener, path string, opts PortOptions) (*PollingPort, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, fmt.Errorf("serial options for %s: %w", path, err)
	}

	port, err := open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	pp, err := NewPollingPort(port, DefaultPollTimeout)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("configure serial port %s: %w", path, err)
	}
	return pp, nil
}
