package benewake

import "encoding/binary"

const (
	// FrameHeader is the sentinel value of both leading frame bytes.
	FrameHeader = 0x59
	// FrameLength is the fixed size of a ranging frame.
	FrameLength = 9
	// MaxDistanceCM is the first distance the sensor reports as out of range.
	MaxDistanceCM = 600
	// OutOfRangeAddCM is the offset the original firmware notes add to
	// out-of-range readings. OutOfRangeDistanceCM keeps the larger of the two.
	OutOfRangeAddCM = 100
)

// OutOfRangeDistanceCM is the sentinel distance reported for polls in which
// every decoded frame was out of range.
const OutOfRangeDistanceCM = max(MaxDistanceCM, OutOfRangeAddCM)

// Measurement is a single decoded ranging frame.
type Measurement struct {
	DistanceCM   uint16  `json:"distance_cm"`
	Strength     uint16  `json:"strength"`
	TemperatureC float64 `json:"temperature_c"`
}

// InRange reports whether the distance is below MaxDistanceCM.
func (m Measurement) InRange() bool {
	return m.DistanceCM < MaxDistanceCM
}

// Outcome classifies the result of feeding one byte to a Decoder.
type Outcome int

const (
	// Incomplete means no frame has been completed yet. Bytes dropped while
	// hunting for the first header byte also report Incomplete.
	Incomplete Outcome = iota
	// Discarded means a candidate frame was abandoned, either because the
	// second header byte did not match or because the checksum failed.
	Discarded
	// Decoded means a frame with a valid checksum was completed.
	Decoded
)

func (o Outcome) String() string {
	switch o {
	case Incomplete:
		return "incomplete"
	case Discarded:
		return "discarded"
	case Decoded:
		return "decoded"
	default:
		return "unknown"
	}
}

// DecoderStats counts what a Decoder has seen since it was created.
type DecoderStats struct {
	Frames         uint64 `json:"frames"`
	OutOfRange     uint64 `json:"out_of_range"`
	ChecksumErrors uint64 `json:"checksum_errors"`
	HeaderResyncs  uint64 `json:"header_resyncs"`
	SkippedNoise   uint64 `json:"skipped_noise"`
	BytesConsumed  uint64 `json:"bytes_consumed"`
}

// Decoder reassembles ranging frames from a byte stream. The zero value is
// ready to use. A Decoder is not safe for concurrent use.
type Decoder struct {
	buf   [FrameLength]byte
	n     int
	stats DecoderStats
}

// Buffered returns the number of bytes held for the current candidate frame.
func (d *Decoder) Buffered() int {
	return d.n
}

// Reset drops any partially assembled frame.
func (d *Decoder) Reset() {
	d.n = 0
}

// Stats returns a copy of the decoder counters.
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

// Feed consumes one byte. The Measurement is only meaningful when the outcome
// is Decoded.
func (d *Decoder) Feed(b byte) (Measurement, Outcome) {
	d.stats.BytesConsumed++

	switch d.n {
	case 0:
		if b == FrameHeader {
			d.buf[0] = b
			d.n = 1
		} else {
			d.stats.SkippedNoise++
		}
		return Measurement{}, Incomplete
	case 1:
		if b != FrameHeader {
			// a lone header byte was noise; start hunting again from the next byte
			d.n = 0
			d.stats.HeaderResyncs++
			return Measurement{}, Discarded
		}
		d.buf[1] = b
		d.n = 2
		return Measurement{}, Incomplete
	}

	d.buf[d.n] = b
	d.n++
	if d.n < FrameLength {
		return Measurement{}, Incomplete
	}

	d.n = 0
	if Checksum(d.buf[:]) != d.buf[FrameLength-1] {
		d.stats.ChecksumErrors++
		return Measurement{}, Discarded
	}

	m := decodePayload(d.buf[:])
	d.stats.Frames++
	if !m.InRange() {
		d.stats.OutOfRange++
	}
	return m, Decoded
}

// Checksum returns the low byte of the sum of the first eight bytes of frame.
// frame must hold at least FrameLength-1 bytes.
func Checksum(frame []byte) byte {
	var sum byte
	for _, b := range frame[:FrameLength-1] {
		sum += b
	}
	return sum
}

// TemperatureC converts the sensor's raw temperature word to degrees Celsius.
func TemperatureC(raw uint16) float64 {
	return float64(raw)/8.0 - 256.0
}

func decodePayload(frame []byte) Measurement {
	return Measurement{
		DistanceCM:   binary.LittleEndian.Uint16(frame[2:4]),
		Strength:     binary.LittleEndian.Uint16(frame[4:6]),
		TemperatureC: TemperatureC(binary.LittleEndian.Uint16(frame[6:8])),
	}
}

// EncodeFrame builds a valid frame carrying the given fields. rawTemp is the
// sensor's raw temperature word, see TemperatureC.
func EncodeFrame(distanceCM, strength, rawTemp uint16) []byte {
	frame := make([]byte, FrameLength)
	frame[0] = FrameHeader
	frame[1] = FrameHeader
	binary.LittleEndian.PutUint16(frame[2:4], distanceCM)
	binary.LittleEndian.PutUint16(frame[4:6], strength)
	binary.LittleEndian.PutUint16(frame[6:8], rawTemp)
	frame[8] = Checksum(frame)
	return frame
}

// RawTemperature converts degrees Celsius back to the sensor's raw word,
// rounding to the nearest 1/8 degree.
func RawTemperature(celsius float64) uint16 {
	return uint16((celsius+256.0)*8.0 + 0.5)
}
