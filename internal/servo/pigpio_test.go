package servo

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Cmd, P1, P2 uint32
}

// fakeDaemon speaks enough of the pigpiod socket protocol for the client.
type fakeDaemon struct {
	ln net.Listener

	mu       sync.Mutex
	requests []request
	// fail makes the daemon answer matching commands with a negative status.
	fail func(request) int32
}

func startFakeDaemon(t *testing.T) *fakeDaemon {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	d := &fakeDaemon{ln: ln}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go d.serve(conn)
		}
	}()
	return d
}

func (d *fakeDaemon) serve(conn net.Conn) {
	defer conn.Close()
	var buf [16]byte
	for {
		if _, err := io.ReadFull(conn, buf[:]); err != nil {
			return
		}
		req := request{
			Cmd: binary.LittleEndian.Uint32(buf[0:]),
			P1:  binary.LittleEndian.Uint32(buf[4:]),
			P2:  binary.LittleEndian.Uint32(buf[8:]),
		}

		d.mu.Lock()
		d.requests = append(d.requests, req)
		var res int32
		if d.fail != nil {
			res = d.fail(req)
		}
		d.mu.Unlock()

		binary.LittleEndian.PutUint32(buf[12:], uint32(res))
		if _, err := conn.Write(buf[:]); err != nil {
			return
		}
	}
}

func (d *fakeDaemon) addr() string { return d.ln.Addr().String() }

func (d *fakeDaemon) seen() []request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]request(nil), d.requests...)
}

func TestDial_ConfiguresOutputs(t *testing.T) {
	d := startFakeDaemon(t)

	p, err := Dial(d.addr(), 19, 18)
	require.NoError(t, err)
	defer p.Stop()

	assert.Equal(t, []request{
		{cmdModes, 19, modeOutput},
		{cmdModes, 18, modeOutput},
	}, d.seen())
}

func TestDial_NoDaemon(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(addr, 19, 18)
	assert.ErrorContains(t, err, "unable to connect to pigpio daemon")
}

func TestDial_BadPin(t *testing.T) {
	d := startFakeDaemon(t)
	d.mu.Lock()
	d.fail = func(r request) int32 {
		if r.P1 == 99 {
			return -2
		}
		return 0
	}
	d.mu.Unlock()

	_, err := Dial(d.addr(), 99, 18)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, int32(-2), cmdErr.Code)

	_, err = Dial(d.addr(), -1, 18)
	assert.Error(t, err)
}

func TestPigpio_SetPositionAndStop(t *testing.T) {
	d := startFakeDaemon(t)
	p, err := Dial(d.addr(), 19, 18)
	require.NoError(t, err)

	require.NoError(t, p.SetPosition(1775, 1500))
	require.NoError(t, p.Stop())

	assert.Equal(t, []request{
		{cmdModes, 19, modeOutput},
		{cmdModes, 18, modeOutput},
		{cmdServo, 19, 1775},
		{cmdServo, 18, 1500},
		{cmdServo, 19, 0},
		{cmdServo, 18, 0},
	}, d.seen())

	err = p.SetPosition(1700, 1000)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestPigpio_RejectedPulseWidth(t *testing.T) {
	d := startFakeDaemon(t)
	p, err := Dial(d.addr(), 19, 18)
	require.NoError(t, err)
	defer p.Stop()

	d.mu.Lock()
	d.fail = func(r request) int32 {
		if r.Cmd == cmdServo && r.P2 > 2500 {
			return -7
		}
		return 0
	}
	d.mu.Unlock()

	err = p.SetPosition(1750, 3000)
	assert.ErrorContains(t, err, "set yaw servo")
	var cmdErr *CommandError
	assert.True(t, errors.As(err, &cmdErr))
}

func TestPigpio_ConcurrentMoves(t *testing.T) {
	d := startFakeDaemon(t)
	p, err := Dial(d.addr(), 19, 18)
	require.NoError(t, err)
	defer p.Stop()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.SetPosition(1700+i, 1000+i))
		}()
	}
	wg.Wait()

	assert.Len(t, d.seen(), 2+16)
}
