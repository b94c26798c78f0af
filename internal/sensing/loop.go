// Package sensing runs the background activity that polls the LiDAR, smooths
// the distance and publishes the latest value to the shared sensor state.
package sensing

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/range.trigger/internal/benewake"
	"github.com/banshee-data/range.trigger/internal/config"
	"github.com/banshee-data/range.trigger/internal/filter"
	"github.com/banshee-data/range.trigger/internal/monitoring"
	"github.com/banshee-data/range.trigger/internal/timeutil"
)

// Poller yields one aggregated reading per call without blocking on the
// transport.
type Poller interface {
	Poll() (benewake.Reading, error)
}

// Sink receives filtered readings.
type Sink interface {
	Update(distanceCM float64, strength uint16, temperatureC float64)
}

// Stats counts poll outcomes.
type Stats struct {
	Polls      uint64 `json:"polls"`
	Averaged   uint64 `json:"averaged"`
	OutOfRange uint64 `json:"out_of_range"`
	NoData     uint64 `json:"no_data"`
	Errors     uint64 `json:"errors"`
	LastError  string `json:"last_error,omitempty"`
}

// Loop is the sensing activity.
type Loop struct {
	poller   Poller
	median   *filter.Median
	sink     Sink
	clock    timeutil.Clock
	interval time.Duration

	mu    sync.Mutex
	stats Stats
}

// NewLoop creates a sensing loop. A nil clock uses the real clock and a
// non-positive interval uses the default sensing interval.
func NewLoop(poller Poller, median *filter.Median, sink Sink, clock timeutil.Clock, interval time.Duration) *Loop {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = config.DefaultSensingInterval
	}
	return &Loop{
		poller:   poller,
		median:   median,
		sink:     sink,
		clock:    clock,
		interval: interval,
	}
}

// Run polls once per interval until ctx is cancelled. Transport errors are
// logged and the loop carries on.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			l.step()
		}
	}
}

// step performs one poll. It returns the value written to the sink and
// whether anything was written.
func (l *Loop) step() (float64, bool) {
	r, err := l.poller.Poll()

	l.mu.Lock()
	l.stats.Polls++
	switch {
	case err != nil:
		l.stats.Errors++
		l.stats.LastError = err.Error()
	case r.Kind == benewake.Averaged:
		l.stats.Averaged++
	case r.Kind == benewake.OutOfRange:
		l.stats.OutOfRange++
	default:
		l.stats.NoData++
	}
	l.mu.Unlock()

	if err != nil {
		monitoring.Logf("[sensing] LiDAR read error: %v", err)
		return 0, false
	}
	if !r.HasData() {
		return 0, false
	}

	filtered := l.median.Push(r.DistanceCM)
	l.sink.Update(filtered, r.Strength, r.TemperatureC)
	return filtered, true
}

// Stats returns a copy of the poll counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}
