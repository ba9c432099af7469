package timeline

import (
	"sort"
	"time"
)

// clippedEvent is an event whose effective range has been resolved and cut
// down to the query window.
type clippedEvent struct {
	event Event
	start time.Time
	end   time.Time
}

// Reconcile converts the raw events of one machine into a gap-free,
// non-overlapping timeline covering exactly the (normalized) query window.
//
// Open-ended events are closed by the start of the next event for the same
// machine, or by the window end when no later event exists. Silence between
// events is emitted as synthetic OFF intervals. Where two events overlap, the
// earlier one wins the contested region and the later one is clamped forward;
// a later event fully shadowed by an earlier one is dropped.
func Reconcile(events []Event, w Window) []Interval {
	w = w.Normalize()

	ordered := make([]Event, 0, len(events))
	for _, ev := range events {
		// Records with an unusable start timestamp are excluded from the
		// timeline; logging the loss is the caller's concern.
		if ev.Start.IsZero() {
			continue
		}
		ordered = append(ordered, ev)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	clips := make([]clippedEvent, 0, len(ordered))
	for i, ev := range ordered {
		end := effectiveEnd(ordered, i, w.To)
		if !ev.Start.Before(w.To) || !end.After(w.From) {
			continue
		}
		start := laterOf(ev.Start, w.From)
		end = earlierOf(end, w.To)
		if !start.Before(end) {
			continue
		}
		clips = append(clips, clippedEvent{event: ev, start: start, end: end})
	}

	intervals := make([]Interval, 0, 2*len(clips)+1)
	cursor := w.From
	for _, c := range clips {
		if c.start.After(cursor) {
			intervals = append(intervals, syntheticGap(cursor, c.start))
			cursor = c.start
		}
		start := c.start
		if start.Before(cursor) {
			start = cursor
		}
		if !start.Before(c.end) {
			continue
		}
		intervals = append(intervals, Interval{
			Status:          c.event.Status,
			Start:           start,
			End:             c.end,
			DurationSeconds: c.end.Sub(start).Seconds(),
			SourceEventID:   c.event.ID,
		})
		cursor = c.end
	}
	if cursor.Before(w.To) {
		intervals = append(intervals, syntheticGap(cursor, w.To))
	}

	return intervals
}

// effectiveEnd resolves the end of the i-th event in a start-ordered slice:
// the explicit end if reported, otherwise the start of the next event,
// otherwise the window end.
func effectiveEnd(ordered []Event, i int, windowEnd time.Time) time.Time {
	if ordered[i].End != nil {
		return *ordered[i].End
	}
	if i+1 < len(ordered) {
		return ordered[i+1].Start
	}
	return windowEnd
}

// syntheticGap builds an OFF interval with no backing event. An unreported
// period counts as OFF time.
func syntheticGap(start, end time.Time) Interval {
	return Interval{
		Status:          StatusOff,
		Start:           start,
		End:             end,
		DurationSeconds: end.Sub(start).Seconds(),
	}
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
