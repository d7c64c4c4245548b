package app

import "time"

// Debouncer allows at most one emission per bar, keyed by the bar's open time.
// It is owned by the decision loop and is not safe for concurrent use.
type Debouncer struct {
	last time.Time
}

// Seed sets the last emitted bar, e.g. from the order journal after a restart.
func (d *Debouncer) Seed(barOpen time.Time) {
	d.last = barOpen
}

// Last returns the open time of the last emitted bar (zero if none).
func (d *Debouncer) Last() time.Time {
	return d.last
}

// Seen reports whether barOpen was already emitted.
func (d *Debouncer) Seen(barOpen time.Time) bool {
	return !d.last.IsZero() && d.last.Equal(barOpen)
}

// Allow records barOpen and returns true unless it equals the last emitted bar.
func (d *Debouncer) Allow(barOpen time.Time) bool {
	if d.Seen(barOpen) {
		return false
	}
	d.last = barOpen
	return true
}
