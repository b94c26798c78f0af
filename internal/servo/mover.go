package servo

import (
	"math/rand/v2"
	"sync"
)

// Mover sends the mount to a random position within its limits on each
// call.
type Mover struct {
	act    Actuator
	limits Limits

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMover creates a Mover. seed fixes the sequence of positions.
func NewMover(act Actuator, limits Limits, seed uint64) *Mover {
	return &Mover{
		act:    act,
		limits: limits,
		rng:    rand.New(rand.NewPCG(seed, seed^0x5eed)),
	}
}

// Next draws a position, uniform and inclusive on each axis.
func (m *Mover) Next() Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Position{
		PitchUS: m.draw(m.limits.Pitch),
		YawUS:   m.draw(m.limits.Yaw),
	}
}

func (m *Mover) draw(r Range) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + m.rng.IntN(r.Max-r.Min+1)
}

// Move draws a position and commands the actuator to it.
func (m *Mover) Move() (Position, error) {
	pos := m.Next()
	return pos, m.act.SetPosition(pos.PitchUS, pos.YawUS)
}
