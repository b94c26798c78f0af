package serialmux

import (
	"errors"
	"io"
	"sync"
	"time"
)

const (
	readChunk = 512
	// MaxPollBytes caps a single ReadAvailable so a continuous stream cannot
	// hold the caller indefinitely.
	MaxPollBytes = 4096
)

// PollingPort drains whatever bytes a port has buffered and returns
// immediately. It satisfies benewake.ByteSource.
type PollingPort struct {
	mu     sync.Mutex
	port   SerialPorter
	chunk  []byte
	closed bool
}

// NewPollingPort wraps port. If the port supports read timeouts it is set to
// timeout so that a read on an idle line returns promptly.
func NewPollingPort(port SerialPorter, timeout time.Duration) (*PollingPort, error) {
	if tp, ok := port.(TimeoutSerialPorter); ok {
		if err := tp.SetReadTimeout(timeout); err != nil {
			return nil, err
		}
	}
	return &PollingPort{port: port, chunk: make([]byte, readChunk)}, nil
}

// ReadAvailable reads until the port reports nothing more, or MaxPollBytes
// have been collected. Bytes read before an error are returned with it.
func (p *PollingPort) ReadAvailable() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPortClosed
	}

	var out []byte
	for len(out) < MaxPollBytes {
		want := min(len(p.chunk), MaxPollBytes-len(out))
		n, err := p.port.Read(p.chunk[:want])
		out = append(out, p.chunk[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

// Write sends raw bytes to the sensor.
func (p *PollingPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	return p.port.Write(b)
}

// Close closes the underlying port. Further reads return ErrPortClosed.
func (p *PollingPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.port.Close()
}
