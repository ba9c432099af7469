package timeline

import (
	"fmt"
	"math"
	"sort"
)

// Summary aggregates a reconciled timeline into ON/OFF totals. Synthetic gaps
// are indistinguishable from real OFF events here.
type Summary struct {
	OnSeconds  float64 `json:"on_time_sec"`
	OffSeconds float64 `json:"off_time_sec"`
	OnPercent  float64 `json:"on_percent"`
	OffPercent float64 `json:"off_percent"`
}

// Summarize totals the ON and OFF duration of a reconciled interval sequence.
// When the timeline is empty both percentages are 0, never NaN.
func Summarize(intervals []Interval) Summary {
	var s Summary
	for _, iv := range intervals {
		if iv.Status == StatusOn {
			s.OnSeconds += iv.DurationSeconds
		} else {
			s.OffSeconds += iv.DurationSeconds
		}
	}
	total := s.OnSeconds + s.OffSeconds
	if total > 0 {
		s.OnPercent = round2(s.OnSeconds / total * 100)
		s.OffPercent = round2(100 - s.OnPercent)
	}
	return s
}

// GroupDuration is the summed clipped duration of all events sharing a
// grouping key, regardless of ON/OFF status.
type GroupDuration struct {
	GroupID *int    `json:"alert_notify_id"`
	Label   string  `json:"movement"`
	Seconds float64 `json:"duration_sec"`
	Hours   float64 `json:"duration_hr"`
}

// GroupDurations sums event durations per group id over every event touching
// the window, with each event's effective range clipped to the window first.
// The label comes from the movement code table; events with an unrecognized
// alert code fall back to a synthesized label instead of being dropped.
func GroupDurations(events []Event, w Window, codes map[string]string) []GroupDuration {
	w = w.Normalize()

	ordered := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Start.IsZero() {
			continue
		}
		ordered = append(ordered, ev)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	type groupAcc struct {
		groupID *int
		label   string
		seconds float64
	}
	accs := make(map[string]*groupAcc)
	var keys []string

	for i, ev := range ordered {
		end := effectiveEnd(ordered, i, w.To)
		start := laterOf(ev.Start, w.From)
		end = earlierOf(end, w.To)
		if !start.Before(end) {
			continue
		}

		key := groupKey(ev)
		acc, ok := accs[key]
		if !ok {
			acc = &groupAcc{groupID: ev.GroupID, label: MovementLabel(ev, codes)}
			accs[key] = acc
			keys = append(keys, key)
		}
		acc.seconds += end.Sub(start).Seconds()
	}

	out := make([]GroupDuration, 0, len(keys))
	for _, key := range keys {
		acc := accs[key]
		out = append(out, GroupDuration{
			GroupID: acc.groupID,
			Label:   acc.label,
			Seconds: acc.seconds,
			Hours:   round2(acc.seconds / 3600),
		})
	}
	return out
}

// MovementLabel maps an event's alert code to its movement label, or
// synthesizes "alert_<group>" / "alert_<code>" when the code is unknown.
func MovementLabel(ev Event, codes map[string]string) string {
	if label, ok := codes[ev.Alert]; ok && label != "" {
		return label
	}
	if ev.GroupID != nil {
		return fmt.Sprintf("alert_%d", *ev.GroupID)
	}
	return fmt.Sprintf("alert_%s", ev.Alert)
}

// groupKey keeps aggregation stable for events lacking a group id by falling
// back to the raw alert code as the grouping key.
func groupKey(ev Event) string {
	if ev.GroupID != nil {
		return fmt.Sprintf("id:%d", *ev.GroupID)
	}
	return "alert:" + ev.Alert
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
