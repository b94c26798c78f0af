// Package servo drives the two-axis pitch/yaw servo mount.
package servo

import (
	"fmt"

	"github.com/banshee-data/range.trigger/internal/config"
	"github.com/banshee-data/range.trigger/internal/monitoring"
)

// Actuator positions both servos by pulse width in microseconds.
type Actuator interface {
	SetPosition(pitchUS, yawUS int) error
	Stop() error
}

// Range is an inclusive pulse-width interval in microseconds.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether us lies within r.
func (r Range) Contains(us int) bool {
	return r.Min <= us && us <= r.Max
}

// Limits bounds the pulse widths drawn for each axis.
type Limits struct {
	Pitch Range `json:"pitch"`
	Yaw   Range `json:"yaw"`
}

// DefaultLimits returns the stock mount limits.
func DefaultLimits() Limits {
	return Limits{
		Pitch: Range{Min: config.DefaultPitchPWMMin, Max: config.DefaultPitchPWMMax},
		Yaw:   Range{Min: config.DefaultYawPWMMin, Max: config.DefaultYawPWMMax},
	}
}

// LimitsFromTuning reads the PWM limits from a tuning config.
func LimitsFromTuning(tc *config.TuningConfig) Limits {
	return Limits{
		Pitch: Range{Min: tc.GetPitchPWMMin(), Max: tc.GetPitchPWMMax()},
		Yaw:   Range{Min: tc.GetYawPWMMin(), Max: tc.GetYawPWMMax()},
	}
}

// Position is a commanded pulse width pair.
type Position struct {
	PitchUS int `json:"pitch_us"`
	YawUS   int `json:"yaw_us"`
}

func (p Position) String() string {
	return fmt.Sprintf("pitch=%dus yaw=%dus", p.PitchUS, p.YawUS)
}

// Disabled is an Actuator that only logs. It stands in for the hardware when
// the servo is switched off.
type Disabled struct{}

// SetPosition logs the requested position.
func (Disabled) SetPosition(pitchUS, yawUS int) error {
	monitoring.Logf("[servo] disabled, would move to pitch=%dus yaw=%dus", pitchUS, yawUS)
	return nil
}

// Stop does nothing.
func (Disabled) Stop() error { return nil }
