package benewake

import "math/rand/v2"

// Simulator synthesises a plausible sensor byte stream for dev mode and
// tests. The target sits at a resting distance with a little jitter and steps
// a few centimetres every StepEvery frames so the trigger loop has something
// to react to. A small share of frames carry line noise or a bad checksum.
type Simulator struct {
	RestCM      float64
	StepCM      float64
	StepEvery   int
	NoiseRate   float64
	CorruptRate float64

	rng   *rand.Rand
	count int
	steps int
}

// NewSimulator returns a Simulator with dev-mode defaults seeded from seed.
func NewSimulator(seed uint64) *Simulator {
	return &Simulator{
		RestCM:      150,
		StepCM:      5,
		StepEvery:   300,
		NoiseRate:   0.02,
		CorruptRate: 0.01,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns the bytes for the next frame, possibly preceded by noise.
func (s *Simulator) Next() []byte {
	s.count++
	if s.StepEvery > 0 && s.count%s.StepEvery == 0 {
		s.steps++
	}

	// alternate between stepping out and back so the distance stays bounded
	offset := 0.0
	if s.steps%2 == 1 {
		offset = s.StepCM
	}
	dist := s.RestCM + offset + (s.rng.Float64()-0.5)
	if dist < 0 {
		dist = 0
	}

	var out []byte
	if s.rng.Float64() < s.NoiseRate {
		// a stray header followed by garbage exercises the resync path
		out = append(out, FrameHeader, byte(s.rng.IntN(FrameHeader)))
	}

	frame := EncodeFrame(uint16(dist+0.5), uint16(1000+s.rng.IntN(200)), RawTemperature(35+s.rng.Float64()))
	if s.rng.Float64() < s.CorruptRate {
		frame[FrameLength-1]++
	}
	return append(out, frame...)
}
