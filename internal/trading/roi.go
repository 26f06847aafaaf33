package trading

import (
	"sort"
	"time"
)

// ROIStep maps a minimum hold duration to the minimum acceptable return
// (fraction) from that duration onward.
type ROIStep struct {
	After     time.Duration
	MinReturn float64
}

// ROITable is a hold-duration-to-minimum-return schedule used as a
// time-decaying exit rule: the longer a position is held, the smaller the
// gain that is accepted. An empty table disables the rule.
type ROITable []ROIStep

// Normalize returns the table sorted by ascending duration. Steps sharing
// a duration keep the last one given.
func (t ROITable) Normalize() ROITable {
	out := make(ROITable, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool { return out[i].After < out[j].After })
	return out
}

// MinReturn returns the threshold applicable after holding for the given
// duration, and false if no step applies yet. The table must be
// normalized.
func (t ROITable) MinReturn(held time.Duration) (float64, bool) {
	min := 0.0
	found := false
	for _, step := range t {
		if held >= step.After {
			min = step.MinReturn
			found = true
		} else {
			break
		}
	}
	return min, found
}
