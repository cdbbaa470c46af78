// Package impute is the core imputation and smoothing engine for cumulative
// water-meter telemetry. It detects gaps in per-meter hourly series, cleans
// sensor artifacts, fills missing readings by linear interpolation or
// iterative SVD matrix completion, and optionally smooths the filled regions
// so day-boundary staircases disappear.
//
// Every operation in this package works on exactly one meter's flattened
// series. The pipeline partitions the table before any fill call, so one
// meter's values can never leak into another's estimate.
package impute

import (
	"sort"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
	"gonum.org/v1/gonum/stat"
)

// DefaultGapThresholdHours is the small/large gap classification boundary
// used by the hybrid strategy.
const DefaultGapThresholdHours = 72

// Gap is a maximal run of missing or invalidated positions in a meter's
// flattened series.
type Gap struct {
	Start  int
	Length int
}

// End returns the index one past the last missing position of the gap.
func (g Gap) End() int {
	return g.Start + g.Length
}

// GapStats aggregates per-meter gap statistics for reports and for the
// hybrid strategy decision.
type GapStats struct {
	Total           int // series length
	MissingCount    int
	MissingPercent  float64
	Gaps            []Gap
	MaxGapHours     int
	AvgGapHours     float64
	MedianGapHours  float64
	FullyMissingDay []int // day indices where all 24 hourly values are missing
}

// ScanGaps returns the ordered list of maximal missing runs in values.
func ScanGaps(values []float64) []Gap {
	var gaps []Gap
	inGap := false
	start := 0
	for i, v := range values {
		if meter.Missing(v) {
			if !inGap {
				start = i
				inGap = true
			}
			continue
		}
		if inGap {
			gaps = append(gaps, Gap{Start: start, Length: i - start})
			inGap = false
		}
	}
	if inGap {
		gaps = append(gaps, Gap{Start: start, Length: len(values) - start})
	}
	return gaps
}

// ScanSeries computes gap statistics for one meter's flattened series.
// It has no side effects on the series.
func ScanSeries(s *meter.Series) GapStats {
	gaps := ScanGaps(s.Values)

	stats := GapStats{
		Total: len(s.Values),
		Gaps:  gaps,
	}
	if stats.Total == 0 {
		return stats
	}

	lengths := make([]float64, len(gaps))
	for i, g := range gaps {
		lengths[i] = float64(g.Length)
		stats.MissingCount += g.Length
		if g.Length > stats.MaxGapHours {
			stats.MaxGapHours = g.Length
		}
	}
	stats.MissingPercent = 100 * float64(stats.MissingCount) / float64(stats.Total)
	if len(lengths) > 0 {
		stats.AvgGapHours = stat.Mean(lengths, nil)
		sort.Float64s(lengths)
		stats.MedianGapHours = stat.Quantile(0.5, stat.Empirical, lengths, nil)
	}

	// A 100%-missing day is a gap covering all 24 values of one row. These
	// feed the fully-missing-day handling in the fillers.
	for d := 0; d < s.Days(); d++ {
		full := true
		for h := 0; h < meter.HoursPerDay; h++ {
			if !meter.Missing(s.Values[d*meter.HoursPerDay+h]) {
				full = false
				break
			}
		}
		if full {
			stats.FullyMissingDay = append(stats.FullyMissingDay, d)
		}
	}
	return stats
}

// Classify splits gaps into small and large by the threshold in hours. Gaps
// strictly longer than thresholdHours are large.
func Classify(gaps []Gap, thresholdHours int) (small, large []Gap) {
	for _, g := range gaps {
		if g.Length > thresholdHours {
			large = append(large, g)
		} else {
			small = append(small, g)
		}
	}
	return small, large
}
