package servo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// DefaultPigpioAddr is where pigpiod listens by default.
const DefaultPigpioAddr = "localhost:8888"

// Default GPIO pins of the mount.
const (
	DefaultPitchPin = 19
	DefaultYawPin   = 18
)

// pigpiod socket command numbers.
const (
	cmdModes uint32 = 0
	cmdServo uint32 = 8

	modeOutput uint32 = 1
)

const commandTimeout = 2 * time.Second

// ErrNotConnected is returned once the daemon connection has been closed.
var ErrNotConnected = errors.New("pigpio daemon not connected")

// Pigpio talks to a local pigpiod over its socket interface. Commands from
// concurrent actuations are serialised on the one connection.
type Pigpio struct {
	mu       sync.Mutex
	conn     net.Conn
	pitchPin uint32
	yawPin   uint32
}

// Dial connects to pigpiod at addr and configures both pins as outputs. An
// error here means the servo cannot be driven at all.
func Dial(addr string, pitchPin, yawPin int) (*Pigpio, error) {
	if pitchPin < 0 || yawPin < 0 {
		return nil, fmt.Errorf("invalid servo pins pitch=%d yaw=%d", pitchPin, yawPin)
	}

	conn, err := net.DialTimeout("tcp", addr, commandTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to pigpio daemon at %s, ensure pigpiod is running: %w", addr, err)
	}

	p := &Pigpio{conn: conn, pitchPin: uint32(pitchPin), yawPin: uint32(yawPin)}
	for _, pin := range []uint32{p.pitchPin, p.yawPin} {
		if _, err := p.command(cmdModes, pin, modeOutput); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set gpio %d to output: %w", pin, err)
		}
	}
	return p, nil
}

// SetPosition sets both servo pulse widths. Pulse widths are not checked
// against the mount limits; pigpiod rejects values outside 500-2500us.
func (p *Pigpio) SetPosition(pitchUS, yawUS int) error {
	if _, err := p.command(cmdServo, p.pitchPin, uint32(pitchUS)); err != nil {
		return fmt.Errorf("set pitch servo: %w", err)
	}
	if _, err := p.command(cmdServo, p.yawPin, uint32(yawUS)); err != nil {
		return fmt.Errorf("set yaw servo: %w", err)
	}
	return nil
}

// Stop switches off the pulses on both pins and disconnects.
func (p *Pigpio) Stop() error {
	var errs []error
	for _, pin := range []uint32{p.pitchPin, p.yawPin} {
		if _, err := p.command(cmdServo, pin, 0); err != nil {
			errs = append(errs, fmt.Errorf("stop gpio %d: %w", pin, err))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

// command sends one request and waits for its reply. pigpiod replies with
// the request echoed and a signed result in the last word.
func (p *Pigpio) command(cmd, p1, p2 uint32) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return 0, ErrNotConnected
	}
	if err := p.conn.SetDeadline(time.Now().Add(commandTimeout)); err != nil {
		return 0, err
	}

	var req [16]byte
	binary.LittleEndian.PutUint32(req[0:], cmd)
	binary.LittleEndian.PutUint32(req[4:], p1)
	binary.LittleEndian.PutUint32(req[8:], p2)
	if _, err := p.conn.Write(req[:]); err != nil {
		return 0, fmt.Errorf("pigpio write: %w", err)
	}

	var resp [16]byte
	if _, err := io.ReadFull(p.conn, resp[:]); err != nil {
		return 0, fmt.Errorf("pigpio read: %w", err)
	}
	res := int32(binary.LittleEndian.Uint32(resp[12:]))
	if res < 0 {
		return res, &CommandError{Cmd: cmd, Code: res}
	}
	return res, nil
}

// CommandError is a negative status returned by pigpiod.
type CommandError struct {
	Cmd  uint32
	Code int32
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("pigpio command %d failed with status %d", e.Cmd, e.Code)
}
