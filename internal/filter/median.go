// Package filter smooths the sensor distance stream before it reaches the
// decision loop.
package filter

import (
	"fmt"
	"slices"
	"sync"
)

// Median is a sliding-window median filter. Until the window has filled, Push
// passes values through unfiltered; afterwards it returns the median of the
// most recent Capacity values.
type Median struct {
	mu     sync.Mutex
	window []float64 // ring buffer, len == capacity
	next   int
	count  int
}

// NewMedian creates a filter over the last capacity samples.
func NewMedian(capacity int) (*Median, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("median filter capacity must be at least 1, got %d", capacity)
	}
	return &Median{window: make([]float64, capacity)}, nil
}

// Capacity returns the window size.
func (f *Median) Capacity() int {
	return len(f.window)
}

// Len returns the number of samples currently held.
func (f *Median) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Full reports whether the window has reached capacity and the filter is active.
func (f *Median) Full() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count == len(f.window)
}

// Push adds v, evicting the oldest sample at capacity, and returns the
// filter output for this cycle.
func (f *Median) Push(v float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.window[f.next] = v
	f.next = (f.next + 1) % len(f.window)
	if f.count < len(f.window) {
		f.count++
	}

	if f.count < len(f.window) {
		return v
	}
	return MedianOf(f.window)
}

// Values returns the held samples, oldest first.
func (f *Median) Values() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]float64, 0, f.count)
	start := (f.next - f.count + len(f.window)) % len(f.window)
	for i := 0; i < f.count; i++ {
		out = append(out, f.window[(start+i)%len(f.window)])
	}
	return out
}

// Reset empties the window, restarting the warm-up period.
func (f *Median) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = 0
	f.count = 0
}

// MedianOf returns the median of values without modifying them. Even-length
// inputs average the two central values. It returns 0 for an empty slice.
func MedianOf(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
