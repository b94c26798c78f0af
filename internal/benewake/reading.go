package benewake

import (
	"fmt"
	"sync"
)

// ReadingKind distinguishes the three possible results of a poll.
type ReadingKind int

const (
	// NoData means no valid frame completed during the poll. It is not an
	// error and is distinct from a zero distance.
	NoData ReadingKind = iota
	// Averaged carries the mean of the in-range distances of the poll.
	Averaged
	// OutOfRange means every decoded frame was beyond MaxDistanceCM.
	OutOfRange
)

func (k ReadingKind) String() string {
	switch k {
	case NoData:
		return "no_data"
	case Averaged:
		return "averaged"
	case OutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Reading is the aggregate of every frame decoded in one poll. Strength and
// TemperatureC come from the most recently decoded frame, whether or not it
// was in range.
type Reading struct {
	Kind         ReadingKind `json:"kind"`
	DistanceCM   float64     `json:"distance_cm"`
	Strength     uint16      `json:"strength"`
	TemperatureC float64     `json:"temperature_c"`
	Frames       int         `json:"frames"`
}

// HasData reports whether the reading carries a distance.
func (r Reading) HasData() bool {
	return r.Kind != NoData
}

func (r Reading) String() string {
	if !r.HasData() {
		return "no data"
	}
	return fmt.Sprintf("%s distance=%.1fcm strength=%d temp=%.2fC frames=%d",
		r.Kind, r.DistanceCM, r.Strength, r.TemperatureC, r.Frames)
}

type tally struct {
	sumCM      float64
	inRange    int
	outOfRange int
	last       Measurement
}

func (t *tally) add(m Measurement) {
	if m.InRange() {
		t.sumCM += float64(m.DistanceCM)
		t.inRange++
	} else {
		t.outOfRange++
	}
	t.last = m
}

func (t *tally) reading() Reading {
	switch {
	case t.inRange > 0:
		return Reading{
			Kind:         Averaged,
			DistanceCM:   t.sumCM / float64(t.inRange),
			Strength:     t.last.Strength,
			TemperatureC: t.last.TemperatureC,
			Frames:       t.inRange + t.outOfRange,
		}
	case t.outOfRange > 0:
		return Reading{
			Kind:         OutOfRange,
			DistanceCM:   OutOfRangeDistanceCM,
			Strength:     t.last.Strength,
			TemperatureC: t.last.TemperatureC,
			Frames:       t.outOfRange,
		}
	default:
		return Reading{Kind: NoData}
	}
}

// Aggregate folds the measurements of one poll into a Reading.
func Aggregate(measurements []Measurement) Reading {
	var t tally
	for _, m := range measurements {
		t.add(m)
	}
	return t.reading()
}

// ByteSource is a non-blocking supply of sensor bytes. ReadAvailable returns
// whatever has arrived since the previous call, possibly nothing.
type ByteSource interface {
	ReadAvailable() ([]byte, error)
}

// Reader turns a ByteSource into one Reading per poll. The decoder persists
// across polls so a frame split between two polls is still recovered.
type Reader struct {
	src ByteSource

	mu      sync.Mutex
	decoder Decoder
}

// NewReader creates a Reader over src.
func NewReader(src ByteSource) *Reader {
	return &Reader{src: src}
}

// Poll drains src once and aggregates every frame completed by the drained
// bytes. On a transport error, bytes that arrived before the failure still
// advance the decoder but the poll's tally is dropped and NoData is returned
// with the error.
func (r *Reader) Poll() (Reading, error) {
	data, err := r.src.ReadAvailable()

	r.mu.Lock()
	defer r.mu.Unlock()

	var t tally
	for _, b := range data {
		if m, outcome := r.decoder.Feed(b); outcome == Decoded {
			t.add(m)
		}
	}
	if err != nil {
		return Reading{Kind: NoData}, fmt.Errorf("read sensor bytes: %w", err)
	}
	return t.reading(), nil
}

// Stats returns a snapshot of the decoder counters. It is safe to call while
// another goroutine polls.
func (r *Reader) Stats() DecoderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decoder.Stats()
}
