package timeline

import "time"

// Machine power status as reported by the event stream.
const (
	StatusOff = 0
	StatusOn  = 1
)

// Event is a single raw machine event as loaded from the event store.
// End is nil while the machine has not reported a closing timestamp.
type Event struct {
	ID      *int64
	GFRID   int64
	Alert   string
	GroupID *int
	Status  int
	Start   time.Time
	End     *time.Time
}

// Window is the half-open query range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// degenerateWindowPadding is added to To when a caller supplies an empty or
// inverted window instead of rejecting the request.
const degenerateWindowPadding = time.Minute

// Normalize widens a degenerate window so that From always precedes To.
func (w Window) Normalize() Window {
	if !w.From.Before(w.To) {
		w.To = w.From.Add(degenerateWindowPadding)
	}
	return w
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.To.Sub(w.From)
}

// DefaultWindow builds the implicit query window used when the caller omits
// the range: the span immediately preceding now.
func DefaultWindow(now time.Time, span time.Duration) Window {
	return Window{From: now.Add(-span), To: now}
}

// Interval is one segment of a reconciled timeline. SourceEventID is nil for
// synthetic OFF gaps inserted where no event was reported.
type Interval struct {
	Status          int        `json:"status"`
	Start           time.Time  `json:"start_time"`
	End             time.Time  `json:"end_time"`
	DurationSeconds float64    `json:"duration_sec"`
	SourceEventID   *int64     `json:"id"`
}
