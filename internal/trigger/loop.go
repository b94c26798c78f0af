package trigger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/range.trigger/internal/monitoring"
	"github.com/banshee-data/range.trigger/internal/sensorstate"
	"github.com/banshee-data/range.trigger/internal/timeutil"
)

// Event describes a fired trigger. It is handed to the Action by value.
type Event struct {
	ID           string    `json:"id"`
	At           time.Time `json:"at"`
	DistanceCM   float64   `json:"distance_cm"`
	BaselineCM   float64   `json:"baseline_cm"`
	DeltaCM      float64   `json:"delta_cm"`
	Strength     uint16    `json:"strength"`
	TemperatureC float64   `json:"temperature_c"`
}

// Action is invoked once per trigger on its own goroutine. The loop never
// waits for it to return.
type Action interface {
	Fire(Event)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(Event)

// Fire calls f(ev).
func (f ActionFunc) Fire(ev Event) { f(ev) }

// StateReader is the read side of the shared sensor state.
type StateReader interface {
	Read() (sensorstate.Snapshot, bool)
}

// Status is a point-in-time view of the decision loop for diagnostics.
type Status struct {
	State        string     `json:"state"`
	BaselineCM   *float64   `json:"baseline_cm,omitempty"`
	LastTrigger  *time.Time `json:"last_trigger,omitempty"`
	Triggers     uint64     `json:"triggers"`
	InFlight     int64      `json:"in_flight"`
	Cycles       uint64     `json:"cycles"`
	LastDecision *Decision  `json:"last_decision,omitempty"`
}

// Loop runs the Controller on a fixed cadence against the shared state.
type Loop struct {
	cfg    Config
	store  StateReader
	action Action
	clock  timeutil.Clock

	mu           sync.Mutex
	ctrl         *Controller
	cycles       uint64
	lastDecision *Decision
	waiting      bool

	inFlight atomic.Int64
}

// NewLoop wires a decision loop. A nil clock uses the real clock.
func NewLoop(cfg Config, store StateReader, action Action, clock timeutil.Clock) *Loop {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Loop{
		cfg:    cfg,
		store:  store,
		action: action,
		clock:  clock,
		ctrl:   NewController(cfg),
	}
}

// Run evaluates the controller once per interval until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			l.cycle()
		}
	}
}

// cycle performs one read-decide-act pass. It reports whether the shared
// state held a reading.
func (l *Loop) cycle() (Decision, bool) {
	snap, ok := l.store.Read()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cycles++

	if !ok {
		if !l.waiting {
			monitoring.Logf("[trigger] waiting for LiDAR data...")
			l.waiting = true
		}
		return Decision{}, false
	}
	if l.waiting {
		monitoring.Logf("[trigger] LiDAR data available, first reading %.1f cm", snap.DistanceCM)
		l.waiting = false
	}

	now := l.clock.Now()
	d := l.ctrl.Step(now, snap.DistanceCM)
	l.lastDecision = &d

	if d.Rebaselined {
		monitoring.Logf("[trigger] cool-down elapsed, baseline reset to %.1f cm", d.BaselineCM)
	}
	monitoring.Tracef("[data] distance: %.1f cm | baseline: %.1f cm | delta: %.1f cm | strength: %d | temp: %.2fC",
		d.DistanceCM, d.BaselineCM, d.DeltaCM, snap.Strength, snap.TemperatureC)

	if d.Fired {
		l.fire(Event{
			ID:           uuid.NewString(),
			At:           now,
			DistanceCM:   d.DistanceCM,
			BaselineCM:   d.BaselineCM,
			DeltaCM:      d.DeltaCM,
			Strength:     snap.Strength,
			TemperatureC: snap.TemperatureC,
		})
	}
	return d, true
}

// fire launches the action on a detached goroutine. If an earlier actuation
// is still running the new one starts anyway; the overlap is only logged.
func (l *Loop) fire(ev Event) {
	if n := l.inFlight.Load(); n > 0 {
		monitoring.Logf("[trigger] firing %s while %d earlier actuation(s) still in flight", ev.ID, n)
	}
	monitoring.Logf("[trigger] change of %.1f cm from baseline %.1f cm, firing %s", ev.DeltaCM, ev.BaselineCM, ev.ID)

	if l.action == nil {
		return
	}
	l.inFlight.Add(1)
	go func() {
		defer l.inFlight.Add(-1)
		l.action.Fire(ev)
	}()
}

// Status returns a snapshot of the loop for diagnostics.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := Status{
		State:    l.ctrl.State().String(),
		Triggers: l.ctrl.Triggers(),
		InFlight: l.inFlight.Load(),
		Cycles:   l.cycles,
	}
	if b, ok := l.ctrl.Baseline(); ok {
		st.BaselineCM = &b
	}
	if last := l.ctrl.LastTrigger(); !last.IsZero() {
		st.LastTrigger = &last
	}
	if l.lastDecision != nil {
		d := *l.lastDecision
		st.LastDecision = &d
	}
	return st
}
