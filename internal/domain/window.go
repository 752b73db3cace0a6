package domain

import "time"

// TimeWindow is a closed reporting interval [Start, End].
type TimeWindow struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
	Label string    `json:"label" yaml:"label"`
}

// Contains reports whether t falls within the window, bounds included.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Midpoint returns the instant halfway between Start and End.
func (w TimeWindow) Midpoint() time.Time {
	return w.Start.Add(w.End.Sub(w.Start) / 2)
}
