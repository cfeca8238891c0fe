package utils

import (
	"sync"
	"time"
)

// RollingAverage is the mean of the most recent durations added to it. It is safe for concurrent
// use.
type RollingAverage struct {
	mu    sync.Mutex
	data  []time.Duration
	pos   int
	count int
}

// NewRollingAverage returns an average over the last numSamples values.
func NewRollingAverage(numSamples int) *RollingAverage {
	if numSamples < 1 {
		numSamples = 1
	}
	return &RollingAverage{data: make([]time.Duration, numSamples)}
}

// NumSamples is the window size.
func (ra *RollingAverage) NumSamples() int {
	return len(ra.data)
}

// Add records x, evicting the oldest value once the window is full.
func (ra *RollingAverage) Add(x time.Duration) {
	ra.mu.Lock()
	defer ra.mu.Unlock()
	ra.data[ra.pos] = x
	ra.pos = (ra.pos + 1) % len(ra.data)
	if ra.count < len(ra.data) {
		ra.count++
	}
}

// Average returns the mean of the recorded values, zero before the first Add.
func (ra *RollingAverage) Average() time.Duration {
	ra.mu.Lock()
	defer ra.mu.Unlock()
	if ra.count == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ra.data[:ra.count] {
		sum += d
	}
	return sum / time.Duration(ra.count)
}
