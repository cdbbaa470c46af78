package impute

import (
	"sort"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
)

// Cleaner reclassifies physically impossible readings as missing before any
// fill runs. Cleaning only ever grows the missing set: an already-missing
// value stays missing, and no invalidated value is restored.
type Cleaner struct {
	// ZeroAsMissing drops exact-zero readings. An accumulated-consumption
	// meter cannot read zero after initialisation.
	ZeroAsMissing bool
	// SpikeWindow is the centered rolling-median window of the anti-ratchet
	// spike filter.
	SpikeWindow int
	// SpikeFactor invalidates values exceeding factor x local median.
	SpikeFactor float64
	// SpikeMedianFloor disables the spike filter where the local median is
	// at or below this level, so near-zero series don't lose everything.
	SpikeMedianFloor float64
	// DropRatio invalidates a value whose ratio to the previous observed
	// value is at or below this bound. Smaller decreases are tolerated as
	// measurement noise and left for the monotonicity pass.
	DropRatio float64
}

// NewCleaner returns a Cleaner with the standard thresholds.
func NewCleaner() Cleaner {
	return Cleaner{
		ZeroAsMissing:    true,
		SpikeWindow:      5,
		SpikeFactor:      1.25,
		SpikeMedianFloor: 10,
		DropRatio:        0.1,
	}
}

// CleanResult counts the readings invalidated by each filter.
type CleanResult struct {
	Zeros  int
	Spikes int
	Drops  int
}

// Invalidated returns the total number of readings reclassified as missing.
func (r CleanResult) Invalidated() int {
	return r.Zeros + r.Spikes + r.Drops
}

// Clean applies the zero, spike and drop filters to values in place and
// returns per-filter counts.
func (c Cleaner) Clean(values []float64) CleanResult {
	var res CleanResult

	if c.ZeroAsMissing {
		for i, v := range values {
			if !meter.Missing(v) && v == 0 {
				values[i] = meter.MissingValue()
				res.Zeros++
			}
		}
	}

	if c.SpikeWindow > 1 && c.SpikeFactor > 0 {
		res.Spikes = c.cleanSpikes(values)
	}

	if c.DropRatio > 0 {
		res.Drops = c.cleanDrops(values)
	}
	return res
}

// cleanSpikes invalidates values exceeding SpikeFactor x the centered
// rolling median, where the median itself is above the floor. The medians
// are computed against a snapshot so removals within one pass don't shift
// neighbouring windows.
func (c Cleaner) cleanSpikes(values []float64) int {
	snapshot := make([]float64, len(values))
	copy(snapshot, values)

	half := c.SpikeWindow / 2
	window := make([]float64, 0, c.SpikeWindow)
	removed := 0

	for i, v := range snapshot {
		if meter.Missing(v) {
			continue
		}
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(snapshot) {
			hi = len(snapshot)
		}
		window = window[:0]
		for _, w := range snapshot[lo:hi] {
			if !meter.Missing(w) {
				window = append(window, w)
			}
		}
		med := median(window)
		if med > c.SpikeMedianFloor && v > c.SpikeFactor*med {
			values[i] = meter.MissingValue()
			removed++
		}
	}
	return removed
}

// cleanDrops invalidates values that collapse to at most DropRatio of the
// immediately preceding observed value. Such a drop is a measurement error,
// not a reset: a reset would be followed by a consistent low regime, which
// the fill then reconstructs from the surviving neighbours.
func (c Cleaner) cleanDrops(values []float64) int {
	removed := 0
	prev := meter.MissingValue()
	for i, v := range values {
		if meter.Missing(v) {
			continue
		}
		if !meter.Missing(prev) && prev > 0 && v < prev && v/prev <= c.DropRatio {
			values[i] = meter.MissingValue()
			removed++
			continue // invalidated values never become the comparison point
		}
		prev = v
	}
	return removed
}

// median returns the median of vals, or NaN for an empty slice. vals is
// reordered in place.
func median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return meter.MissingValue()
	}
	sort.Float64s(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
