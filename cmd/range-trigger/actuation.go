package main

import (
	"github.com/banshee-data/range.trigger/internal/db"
	"github.com/banshee-data/range.trigger/internal/monitoring"
	"github.com/banshee-data/range.trigger/internal/servo"
	"github.com/banshee-data/range.trigger/internal/trigger"
)

type journal interface {
	RecordTrigger(db.TriggerEvent) error
}

type publisher interface {
	Publish(v any) bool
}

// actuation is the trigger.Action of the daemon: move the mount, then
// journal and announce what happened. Every failure is logged and swallowed.
type actuation struct {
	mover   *servo.Mover
	journal journal
	pub     publisher
}

func (a *actuation) Fire(ev trigger.Event) {
	rec := db.TriggerEvent{
		ID:           ev.ID,
		TriggeredAt:  ev.At,
		DistanceCM:   ev.DistanceCM,
		BaselineCM:   ev.BaselineCM,
		DeltaCM:      ev.DeltaCM,
		Strength:     ev.Strength,
		TemperatureC: ev.TemperatureC,
	}

	pos, err := a.mover.Move()
	if err != nil {
		monitoring.Logf("[servo] actuation %s failed: %v", ev.ID, err)
		rec.Error = err.Error()
	} else {
		monitoring.Logf("[servo] %s", pos)
		rec.PitchUS = &pos.PitchUS
		rec.YawUS = &pos.YawUS
	}

	if a.journal != nil {
		if err := a.journal.RecordTrigger(rec); err != nil {
			monitoring.Logf("[journal] %v", err)
		}
	}
	if a.pub != nil {
		a.pub.Publish(rec)
	}
}
