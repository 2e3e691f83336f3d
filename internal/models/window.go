package models

import "time"

// Window labels
const (
	Window7d  = "7d"
	Window30d = "30d"
	Window90d = "90d"
)

// TimeWindow is a labeled, half-open [Start, End) time range anchored to a
// reference instant. End is the reference; Start is End minus the label's days.
type TimeWindow struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the nominal length of the window in days.
func (w TimeWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
