package impute

import "github.com/aquanet-data/telemetry.fill/internal/meter"

// EnforceMonotonic clamps every value lower than its immediate predecessor
// up to the predecessor, in a single left-to-right pass over the flattened
// series. Missing positions are skipped, so the pass is also safe on
// partially filled series. Repeated application is a no-op.
func EnforceMonotonic(values []float64) int {
	clamped := 0
	prev := meter.MissingValue()
	for i, v := range values {
		if meter.Missing(v) {
			continue
		}
		if !meter.Missing(prev) && v < prev {
			values[i] = prev
			clamped++
			prev = values[i]
			continue
		}
		prev = v
	}
	return clamped
}

// EnforceMonotonicImputed is the mask-aware variant used after a fill:
// only imputed positions are clamped, observed readings pass through
// untouched. Two passes: right-to-left caps each imputed value at the
// nearest observed value to its right (an overshoot must not force a
// decrease at the next real reading), then left-to-right raises imputed
// values to the running floor, which every observed value resets. For a
// non-decreasing observed sequence the result is globally non-decreasing.
func EnforceMonotonicImputed(values []float64, imputed []bool) int {
	clamped := 0

	ceil := meter.MissingValue()
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		if meter.Missing(v) {
			continue
		}
		if imputed[i] {
			if !meter.Missing(ceil) && v > ceil {
				values[i] = ceil
				clamped++
			}
			continue
		}
		ceil = v
	}

	prev := meter.MissingValue()
	for i, v := range values {
		if meter.Missing(v) {
			continue
		}
		if imputed[i] && !meter.Missing(prev) && v < prev {
			values[i] = prev
			clamped++
			continue
		}
		prev = v
	}
	return clamped
}

// ClampNonNegative raises negative values to zero. Reconstruction can
// produce small negative estimates; a cumulative reading never is.
func ClampNonNegative(values []float64) {
	for i, v := range values {
		if !meter.Missing(v) && v < 0 {
			values[i] = 0
		}
	}
}
