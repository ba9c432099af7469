package timeline

import (
	"sort"
	"time"
)

// MachineEvents pairs a machine with its raw events for fleet-wide analysis.
type MachineEvents struct {
	GFRID  int64
	Events []Event
}

// MachineUsage is one machine's share of fleet usage over a shared window.
// OnPercent is the machine's fraction of the fleet's total ON time, not of
// the window length.
type MachineUsage struct {
	GFRID      int64    `json:"gfrid"`
	OnSeconds  float64  `json:"on_sec"`
	OffSeconds float64  `json:"off_sec"`
	OnPercent  float64  `json:"on_percent"`
	OffPercent float64  `json:"off_percent"`
	Buckets    []Bucket `json:"buckets,omitempty"`
}

// FleetBucket is the fleet-level rollup of one bucket across all machines.
// A machine counts as ON in a bucket when it accrued any ON time there.
type FleetBucket struct {
	Start       time.Time `json:"start_time"`
	End         time.Time `json:"end_time"`
	OnSeconds   float64   `json:"on_time_sec"`
	OffSeconds  float64   `json:"off_time_sec"`
	MachinesOn  int       `json:"machines_on"`
	MachinesOff int       `json:"machines_off"`
}

// Rank reconciles and aggregates every machine over the shared window, then
// ranks machines by ON time descending (stable, so ties keep enumeration
// order) with usage percentages relative to the fleet total. A bucketSize > 0
// additionally produces per-machine bucket series and a fleet-level rollup.
func Rank(machines []MachineEvents, w Window, bucketSize time.Duration) ([]MachineUsage, []FleetBucket) {
	w = w.Normalize()

	usages := make([]MachineUsage, 0, len(machines))
	var fleet []FleetBucket
	for _, m := range machines {
		summary := Summarize(Reconcile(m.Events, w))
		usage := MachineUsage{
			GFRID:      m.GFRID,
			OnSeconds:  summary.OnSeconds,
			OffSeconds: summary.OffSeconds,
		}
		if bucketSize > 0 {
			usage.Buckets = SliceBuckets(m.Events, w, bucketSize)
			fleet = rollupBuckets(fleet, usage.Buckets)
		}
		usages = append(usages, usage)
	}

	var fleetTotalOn float64
	for _, u := range usages {
		fleetTotalOn += u.OnSeconds
	}
	if fleetTotalOn == 0 {
		// Every machine ends up at 0% instead of dividing by zero.
		fleetTotalOn = 1
	}
	for i := range usages {
		usages[i].OnPercent = round2(usages[i].OnSeconds / fleetTotalOn * 100)
		usages[i].OffPercent = round2(100 - usages[i].OnPercent)
	}

	sort.SliceStable(usages, func(i, j int) bool {
		return usages[i].OnSeconds > usages[j].OnSeconds
	})

	return usages, fleet
}

// rollupBuckets folds one machine's bucket series into the fleet rollup.
// All series share the same window and size, so indexes line up.
func rollupBuckets(fleet []FleetBucket, buckets []Bucket) []FleetBucket {
	if fleet == nil {
		fleet = make([]FleetBucket, len(buckets))
		for i, b := range buckets {
			fleet[i].Start = b.Start
			fleet[i].End = b.End
		}
	}
	for i, b := range buckets {
		fleet[i].OnSeconds += b.OnSeconds
		fleet[i].OffSeconds += b.OffSeconds
		if b.OnSeconds > 0 {
			fleet[i].MachinesOn++
		} else {
			fleet[i].MachinesOff++
		}
	}
	return fleet
}
