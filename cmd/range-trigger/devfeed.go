package main

import (
	"context"
	"time"

	"github.com/banshee-data/range.trigger/internal/benewake"
	"github.com/banshee-data/range.trigger/internal/serialmux"
	"github.com/banshee-data/range.trigger/internal/timeutil"
)

// framePeriod matches the sensor's factory output rate of 100Hz.
const framePeriod = 10 * time.Millisecond

// feedSimulator writes one simulated frame per tick into port until ctx is
// cancelled.
func feedSimulator(ctx context.Context, port *serialmux.TestableSerialPort, sim *benewake.Simulator, clock timeutil.Clock) {
	ticker := clock.NewTicker(framePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			port.AddReadData(sim.Next())
		}
	}
}
