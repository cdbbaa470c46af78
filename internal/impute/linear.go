package impute

import (
	"errors"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
)

// ErrNoObservations is returned when a meter has no observed value at all.
// There is nothing to anchor a fill on, so the series is left missing and
// surfaced as a per-meter fallback rather than fabricated from zeros.
var ErrNoObservations = errors.New("impute: meter has no observed values")

// LinearFiller is the fast fill path: horizontal linear interpolation across
// the 24 hourly columns of each day, then day-level carry-forward for fully
// missing days. A fully missing day takes the previous day's final
// cumulative value across all 24 slots (never zero: a cumulative reading of
// zero would fabricate a meter reset). Leading fully missing days are
// back-filled from the first observed day's opening value.
type LinearFiller struct{}

// Name identifies the strategy in logs and reports.
func (LinearFiller) Name() string { return "linear" }

// Fill returns a complete copy of values. days is the number of 24-hour
// rows; len(values) must be days*24.
func (LinearFiller) Fill(values []float64, days int) ([]float64, FillInfo, error) {
	out := make([]float64, len(values))
	copy(out, values)

	anyObserved := false
	for d := 0; d < days; d++ {
		row := out[d*meter.HoursPerDay : (d+1)*meter.HoursPerDay]
		if interpolateRow(row) {
			anyObserved = true
		}
	}
	if !anyObserved {
		return nil, FillInfo{}, ErrNoObservations
	}

	carryForwardDays(out, days)
	return out, FillInfo{}, nil
}

// interpolateRow linearly interpolates missing positions between observed
// neighbours within one day row, holding the nearest observed value before
// the first and after the last observation. Reports whether the row had any
// observation; a fully missing row is left untouched.
func interpolateRow(row []float64) bool {
	first, last := -1, -1
	for i, v := range row {
		if !meter.Missing(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return false
	}

	for i := 0; i < first; i++ {
		row[i] = row[first]
	}
	for i := last + 1; i < len(row); i++ {
		row[i] = row[last]
	}

	prev := first
	for i := first + 1; i <= last; i++ {
		if meter.Missing(row[i]) {
			continue
		}
		if i > prev+1 {
			step := (row[i] - row[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				row[j] = row[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	return true
}

// carryForwardDays resolves fully missing day rows after horizontal
// interpolation. A missing day is held at the previous day's closing value;
// leading missing days take the first filled day's opening value.
func carryForwardDays(values []float64, days int) {
	firstFilled := -1
	for d := 0; d < days; d++ {
		if !meter.Missing(values[d*meter.HoursPerDay]) {
			firstFilled = d
			break
		}
	}
	if firstFilled < 0 {
		return
	}

	opening := values[firstFilled*meter.HoursPerDay]
	for d := 0; d < firstFilled; d++ {
		row := values[d*meter.HoursPerDay : (d+1)*meter.HoursPerDay]
		for i := range row {
			row[i] = opening
		}
	}

	for d := firstFilled + 1; d < days; d++ {
		row := values[d*meter.HoursPerDay : (d+1)*meter.HoursPerDay]
		if !meter.Missing(row[0]) {
			continue
		}
		closing := values[d*meter.HoursPerDay-1] // previous day's hour 23
		for i := range row {
			row[i] = closing
		}
	}
}

// ffillColumns forward-fills then back-fills each hourly column down the day
// axis. Used only to seed the SVD estimate; the linear path uses the flat
// carry-forward above instead, so a fully missing day never inherits a
// repeated consumption profile as its final answer.
func ffillColumns(values []float64, days int) {
	for h := 0; h < meter.HoursPerDay; h++ {
		last := meter.MissingValue()
		for d := 0; d < days; d++ {
			i := d*meter.HoursPerDay + h
			if meter.Missing(values[i]) {
				values[i] = last
			} else {
				last = values[i]
			}
		}
		next := meter.MissingValue()
		for d := days - 1; d >= 0; d-- {
			i := d*meter.HoursPerDay + h
			if meter.Missing(values[i]) {
				values[i] = next
			} else {
				next = values[i]
			}
		}
	}
}

// meanFill replaces any remaining missing position with the mean of the
// observed values. Last-resort seeding only.
func meanFill(values []float64) {
	sum, n := 0.0, 0
	for _, v := range values {
		if !meter.Missing(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return
	}
	mean := sum / float64(n)
	for i, v := range values {
		if meter.Missing(v) {
			values[i] = mean
		}
	}
}
