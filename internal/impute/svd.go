package impute

import (
	"log"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
	"gonum.org/v1/gonum/mat"
)

// SVD convergence defaults, matching the scientific-path contract.
const (
	DefaultNComponents   = 50
	DefaultMaxIterations = 10
	DefaultTolerance     = 1e-4
)

// FillInfo carries per-meter diagnostics from a fill strategy.
type FillInfo struct {
	Iterations   int
	Converged    bool
	DecompFailed bool
}

// Filler is one interchangeable fill strategy over a single meter's
// flattened series. days is the number of 24-hour rows. Implementations
// must never consult data from any other meter.
type Filler interface {
	Name() string
	Fill(values []float64, days int) ([]float64, FillInfo, error)
}

// SVDFiller is the scientific fill path: iterative low-rank matrix
// completion of the meter's (days x 24) reading matrix. A rank-k truncated
// SVD of the current estimate is reconstructed each iteration and written
// back only at the originally missing positions, until the relative
// Frobenius-norm change drops below Tolerance or MaxIterations is reached.
type SVDFiller struct {
	// NComponents bounds the completion rank; the effective rank is
	// min(NComponents, min(days, 24)-1).
	NComponents   int
	MaxIterations int
	Tolerance     float64
}

// NewSVDFiller returns an SVDFiller with the standard convergence bounds.
func NewSVDFiller() SVDFiller {
	return SVDFiller{
		NComponents:   DefaultNComponents,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

// Name identifies the strategy in logs and reports.
func (SVDFiller) Name() string { return "svd" }

// Fill returns a complete copy of values with all reconstructed positions
// non-negative and every originally observed value restored verbatim.
func (f SVDFiller) Fill(values []float64, days int) ([]float64, FillInfo, error) {
	observed := make([]bool, len(values))
	anyObserved := false
	for i, v := range values {
		observed[i] = !meter.Missing(v)
		anyObserved = anyObserved || observed[i]
	}
	if !anyObserved {
		return nil, FillInfo{}, ErrNoObservations
	}

	// Phase 1: complete starting estimate. Horizontal interpolation, then
	// vertical fill down the day axis, then mean as a last resort.
	est := make([]float64, len(values))
	copy(est, values)
	for d := 0; d < days; d++ {
		interpolateRow(est[d*meter.HoursPerDay : (d+1)*meter.HoursPerDay])
	}
	ffillColumns(est, days)
	meanFill(est)

	// Phase 2: iterative truncated-SVD refinement.
	info := f.refine(est, observed, days)

	// Phase 3: restore observed values verbatim and clamp. The refinement
	// only writes missing positions, but the observed copy is the contract,
	// not an implementation detail of the loop above.
	for i, obs := range observed {
		if obs {
			est[i] = values[i]
		}
	}
	ClampNonNegative(est)
	return est, info, nil
}

// refine runs the SVD iteration in place over est and reports how it ended.
func (f SVDFiller) refine(est []float64, observed []bool, days int) FillInfo {
	var info FillInfo

	cols := meter.HoursPerDay
	rank := f.NComponents
	if m := min(days, cols) - 1; rank > m {
		rank = m
	}
	if rank < 1 || f.MaxIterations < 1 {
		return info
	}

	cur := mat.NewDense(days, cols, est)
	var prev []float64

	for iter := 0; iter < f.MaxIterations; iter++ {
		var svd mat.SVD
		if ok := svd.Factorize(cur, mat.SVDThin); !ok {
			// Numerical failure: keep the last valid estimate.
			log.Printf("[SVD] decomposition failed at iteration %d, keeping current estimate", iter+1)
			info.DecompFailed = true
			return info
		}

		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		sv := svd.Values(nil)
		for k := rank; k < len(sv); k++ {
			sv[k] = 0
		}
		sigma := mat.NewDiagDense(len(sv), sv)

		var recon mat.Dense
		recon.Product(&u, sigma, v.T())

		// Overwrite only the originally missing positions.
		for i := range est {
			if !observed[i] {
				est[i] = recon.At(i/cols, i%cols)
			}
		}
		info.Iterations = iter + 1

		if prev != nil {
			num, den := 0.0, 0.0
			for i := range est {
				d := est[i] - prev[i]
				num += d * d
				den += est[i] * est[i]
			}
			if den > 0 && num/den < f.Tolerance*f.Tolerance {
				info.Converged = true
				return info
			}
		}
		if prev == nil {
			prev = make([]float64, len(est))
		}
		copy(prev, est)
	}
	return info
}
