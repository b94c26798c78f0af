// Package trigger decides when a change in the filtered distance is large
// enough to move the servo, and debounces repeated triggers while a move is
// under way.
package trigger

import (
	"math"
	"time"

	"github.com/banshee-data/range.trigger/internal/config"
)

// State is the position of the Controller in its state machine.
type State int

const (
	// WaitingForBaseline holds until the first reading arrives.
	WaitingForBaseline State = iota
	// Armed compares each reading against the baseline.
	Armed
	// Actuating ignores readings until the servo moving time has elapsed.
	Actuating
)

func (s State) String() string {
	switch s {
	case WaitingForBaseline:
		return "waiting_for_baseline"
	case Armed:
		return "armed"
	case Actuating:
		return "actuating"
	default:
		return "unknown"
	}
}

// Config holds the trigger window and timing.
type Config struct {
	// LowerCM and UpperCM bound the change that fires a trigger. Both bounds
	// are exclusive.
	LowerCM float64
	UpperCM float64
	// ServoMovingTime is the cool-down after a trigger before the baseline is
	// refreshed and the controller re-arms.
	ServoMovingTime time.Duration
	// Interval is the decision loop period.
	Interval time.Duration
}

// DefaultConfig returns the stock trigger configuration.
func DefaultConfig() Config {
	return Config{
		LowerCM:         config.DefaultTriggerLowerCM,
		UpperCM:         config.DefaultTriggerUpperCM,
		ServoMovingTime: config.DefaultServoMovingTime,
		Interval:        config.DefaultDecisionInterval,
	}
}

// ConfigFromTuning extracts the trigger settings from a tuning config.
func ConfigFromTuning(tc *config.TuningConfig) Config {
	return Config{
		LowerCM:         tc.GetTriggerLowerCM(),
		UpperCM:         tc.GetTriggerUpperCM(),
		ServoMovingTime: tc.GetServoMovingTime(),
		Interval:        tc.GetDecisionInterval(),
	}
}

// InWindow reports whether delta lies strictly between lower and upper.
func InWindow(delta, lower, upper float64) bool {
	return lower < delta && delta < upper
}

// Decision describes one controller step.
type Decision struct {
	State       State   `json:"-"`
	StateName   string  `json:"state"`
	DistanceCM  float64 `json:"distance_cm"`
	BaselineCM  float64 `json:"baseline_cm"`
	DeltaCM     float64 `json:"delta_cm"`
	Fired       bool    `json:"fired"`
	Rebaselined bool    `json:"rebaselined"`
}

// Controller is the trigger state machine. It is owned by a single goroutine
// and is not safe for concurrent use.
type Controller struct {
	cfg         Config
	state       State
	baseline    float64
	lastTrigger time.Time
	triggers    uint64
}

// NewController returns a controller waiting for its first reading.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Baseline returns the reference distance, or false before the first reading.
func (c *Controller) Baseline() (float64, bool) {
	return c.baseline, c.state != WaitingForBaseline
}

// LastTrigger returns the time of the most recent trigger, zero if none.
func (c *Controller) LastTrigger() time.Time {
	return c.lastTrigger
}

// Triggers returns the number of triggers fired so far.
func (c *Controller) Triggers() uint64 {
	return c.triggers
}

// Step evaluates one reading taken at now. DeltaCM in the returned Decision is
// measured against the baseline in force when the reading arrived.
func (c *Controller) Step(now time.Time, distanceCM float64) Decision {
	if c.state == WaitingForBaseline {
		c.baseline = distanceCM
		c.state = Armed
	}

	d := Decision{
		DistanceCM: distanceCM,
		DeltaCM:    math.Abs(distanceCM - c.baseline),
	}

	// The cool-down is measured from the trigger time alone; it does not wait
	// for the actuation itself to finish.
	if c.state == Actuating && now.Sub(c.lastTrigger) >= c.cfg.ServoMovingTime {
		c.baseline = distanceCM
		c.state = Armed
		d.Rebaselined = true
	}

	if c.state == Armed && InWindow(math.Abs(distanceCM-c.baseline), c.cfg.LowerCM, c.cfg.UpperCM) {
		c.lastTrigger = now
		c.state = Actuating
		c.triggers++
		d.Fired = true
	}

	d.State = c.state
	d.StateName = c.state.String()
	d.BaselineCM = c.baseline
	return d
}
