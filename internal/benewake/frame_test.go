package benewake

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedAll feeds data to d and returns every decoded measurement plus the
// outcome of the final byte.
func feedAll(d *Decoder, data []byte) ([]Measurement, Outcome) {
	var got []Measurement
	last := Incomplete
	for _, b := range data {
		m, outcome := d.Feed(b)
		if outcome == Decoded {
			got = append(got, m)
		}
		last = outcome
	}
	return got, last
}

func TestDecoder_ValidFrame(t *testing.T) {
	// distance 0x012C = 300cm, strength 0x03E8 = 1000, temp 0x0960 = 2400 -> 44C
	frame := []byte{0x59, 0x59, 0x2C, 0x01, 0xE8, 0x03, 0x60, 0x09, 0x00}
	frame[8] = Checksum(frame)

	var d Decoder
	got, last := feedAll(&d, frame)

	require.Len(t, got, 1)
	assert.Equal(t, Decoded, last)
	want := Measurement{DistanceCM: 300, Strength: 1000, TemperatureC: 44}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("measurement mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, d.Buffered())
}

func TestDecoder_CorruptChecksum(t *testing.T) {
	frame := EncodeFrame(300, 1000, 2400)
	frame[8] ^= 0xFF

	var d Decoder
	got, last := feedAll(&d, frame)

	assert.Empty(t, got)
	assert.Equal(t, Discarded, last)
	assert.Equal(t, 0, d.Buffered(), "buffer must be empty after a checksum failure")
	assert.Equal(t, uint64(1), d.Stats().ChecksumErrors)
}

func TestDecoder_ChecksumFailureDoesNotRescanCandidate(t *testing.T) {
	// The corrupt candidate contains an embedded valid-looking header; the
	// decoder must drop all nine bytes rather than resync inside them.
	bad := []byte{0x59, 0x59, 0x59, 0x59, 0x10, 0x00, 0x00, 0x00, 0x00}
	good := EncodeFrame(120, 50, 2048)

	var d Decoder
	got, _ := feedAll(&d, append(bad, good...))

	require.Len(t, got, 1)
	assert.Equal(t, uint16(120), got[0].DistanceCM)
}

func TestDecoder_StrayHeaderResync(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
	}{
		{"stray header then noise", []byte{0x59, 0x00}},
		{"stray header then low byte", []byte{0x59, 0x58}},
		{"noise around stray header", []byte{0x01, 0x02, 0x59, 0xFF, 0x03}},
		{"two stray headers", []byte{0x59, 0x11, 0x59, 0x22}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decoder
			data := append(append([]byte{}, tt.prefix...), EncodeFrame(250, 700, 2200)...)
			got, last := feedAll(&d, data)

			require.Len(t, got, 1)
			assert.Equal(t, Decoded, last)
			assert.Equal(t, uint16(250), got[0].DistanceCM)
			assert.Equal(t, uint16(700), got[0].Strength)
		})
	}
}

func TestDecoder_SecondHeaderMismatchReportsDiscarded(t *testing.T) {
	var d Decoder

	_, outcome := d.Feed(FrameHeader)
	assert.Equal(t, Incomplete, outcome)
	assert.Equal(t, 1, d.Buffered())

	_, outcome = d.Feed(0x42)
	assert.Equal(t, Discarded, outcome)
	assert.Equal(t, 0, d.Buffered())
	assert.Equal(t, uint64(1), d.Stats().HeaderResyncs)
}

func TestDecoder_NoiseIsSkippedSilently(t *testing.T) {
	var d Decoder
	for _, b := range []byte{0x00, 0x10, 0xFF, 0x58, 0x5A} {
		_, outcome := d.Feed(b)
		assert.Equal(t, Incomplete, outcome)
	}
	assert.Equal(t, 0, d.Buffered())
	assert.Equal(t, uint64(5), d.Stats().SkippedNoise)
}

func TestDecoder_EmptyInputIsIdempotent(t *testing.T) {
	var d Decoder
	feedAll(&d, EncodeFrame(10, 20, 2048))
	before := d.Stats()

	got, last := feedAll(&d, nil)

	assert.Empty(t, got)
	assert.Equal(t, Incomplete, last)
	assert.Equal(t, 0, d.Buffered())
	assert.Equal(t, before, d.Stats())
}

func TestDecoder_BufferNeverExceedsFrameLength(t *testing.T) {
	var d Decoder
	stream := NewSimulator(7)
	for i := 0; i < 500; i++ {
		for _, b := range stream.Next() {
			d.Feed(b)
			require.LessOrEqual(t, d.Buffered(), FrameLength)
		}
	}
}

func TestDecoder_FrameSplitAcrossFeeds(t *testing.T) {
	frame := EncodeFrame(42, 9, 2048)

	var d Decoder
	first, _ := feedAll(&d, frame[:4])
	assert.Empty(t, first)
	assert.Equal(t, 4, d.Buffered())

	second, _ := feedAll(&d, frame[4:])
	require.Len(t, second, 1)
	assert.Equal(t, uint16(42), second[0].DistanceCM)
}

func TestDecoder_Reset(t *testing.T) {
	var d Decoder
	feedAll(&d, []byte{0x59, 0x59, 0x01})
	require.Equal(t, 3, d.Buffered())

	d.Reset()
	assert.Equal(t, 0, d.Buffered())
}

func TestMeasurement_InRange(t *testing.T) {
	assert.True(t, Measurement{DistanceCM: 0}.InRange())
	assert.True(t, Measurement{DistanceCM: 599}.InRange())
	assert.False(t, Measurement{DistanceCM: 600}.InRange())
	assert.False(t, Measurement{DistanceCM: 65535}.InRange())
}

func TestTemperatureC(t *testing.T) {
	tests := []struct {
		raw  uint16
		want float64
	}{
		{0, -256},
		{2048, 0},
		{2049, 0.125},
		{2248, 25},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, TemperatureC(tt.raw), 1e-9, "raw=%d", tt.raw)
		assert.Equal(t, tt.raw, RawTemperature(tt.want))
	}
}

func TestEncodeFrame(t *testing.T) {
	frame := EncodeFrame(0x0102, 0x0304, 0x0506)

	want := []byte{0x59, 0x59, 0x02, 0x01, 0x04, 0x03, 0x06, 0x05, 0x00}
	want[8] = byte(0x59 + 0x59 + 0x02 + 0x01 + 0x04 + 0x03 + 0x06 + 0x05)
	assert.Equal(t, want, frame)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "incomplete", Incomplete.String())
	assert.Equal(t, "discarded", Discarded.String())
	assert.Equal(t, "decoded", Decoded.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
