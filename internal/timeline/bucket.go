package timeline

import "time"

// Bucket is one fixed-size sub-window of a bucketed aggregation. The final
// bucket of a window may be shorter than the requested size.
type Bucket struct {
	Start      time.Time `json:"start_time"`
	End        time.Time `json:"end_time"`
	OnSeconds  float64   `json:"on_time_sec"`
	OffSeconds float64   `json:"off_time_sec"`
	OnPercent  float64   `json:"on_percent"`
	OffPercent float64   `json:"off_percent"`
}

// SliceBuckets splits the window into contiguous buckets of the given size and
// computes per-bucket ON/OFF totals. ON time is taken from the reconciled
// timeline, so overlapping raw events cannot inflate a bucket beyond its
// length; OFF time is the remainder of the bucket.
func SliceBuckets(events []Event, w Window, size time.Duration) []Bucket {
	if size <= 0 {
		return nil
	}
	w = w.Normalize()
	intervals := Reconcile(events, w)

	var buckets []Bucket
	for start := w.From; start.Before(w.To); start = start.Add(size) {
		end := earlierOf(start.Add(size), w.To)
		length := end.Sub(start).Seconds()

		var on float64
		for _, iv := range intervals {
			if iv.Status != StatusOn {
				continue
			}
			os := laterOf(iv.Start, start)
			oe := earlierOf(iv.End, end)
			if os.Before(oe) {
				on += oe.Sub(os).Seconds()
			}
		}

		b := Bucket{
			Start:      start,
			End:        end,
			OnSeconds:  on,
			OffSeconds: length - on,
		}
		if length > 0 {
			b.OnPercent = round2(on / length * 100)
			b.OffPercent = round2(100 - b.OnPercent)
		}
		buckets = append(buckets, b)
	}
	return buckets
}
