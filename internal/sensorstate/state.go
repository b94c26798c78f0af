// Package sensorstate holds the latest filtered sensor reading shared between
// the sensing loop, which writes it, and the decision loop, which reads it.
package sensorstate

import (
	"sync"
	"time"
)

// Snapshot is a consistent copy of the latest reading. Seq increases by one
// on every update so readers can tell a fresh value from a stale one.
type Snapshot struct {
	DistanceCM   float64   `json:"distance_cm"`
	Strength     uint16    `json:"strength"`
	TemperatureC float64   `json:"temperature_c"`
	UpdatedAt    time.Time `json:"updated_at"`
	Seq          uint64    `json:"seq"`
}

// Store is a single-slot latest-value cell. All three fields are replaced
// together under the write lock, so a reader never observes a mix of two
// updates. The zero value is an empty, ready-to-use store.
type Store struct {
	mu    sync.RWMutex
	snap  Snapshot
	valid bool
	now   func() time.Time
}

// NewStore returns an empty Store that stamps updates with now. A nil now
// uses time.Now.
func NewStore(now func() time.Time) *Store {
	return &Store{now: now}
}

// Update replaces the stored reading.
func (s *Store) Update(distanceCM float64, strength uint16, temperatureC float64) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	stamp := now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{
		DistanceCM:   distanceCM,
		Strength:     strength,
		TemperatureC: temperatureC,
		UpdatedAt:    stamp,
		Seq:          s.snap.Seq + 1,
	}
	s.valid = true
}

// Read returns a copy of the latest reading. ok is false until the first
// Update, which callers treat as "keep waiting" rather than an error.
func (s *Store) Read() (snap Snapshot, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.valid
}
