package impute

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

// SmoothMethod selects the smoothing kernel.
type SmoothMethod string

const (
	SmoothMovingAvg SmoothMethod = "moving_avg"
	SmoothSpline    SmoothMethod = "spline"
	SmoothSavgol    SmoothMethod = "savgol"
)

// DefaultSmoothingWindow is the default kernel window in samples.
const DefaultSmoothingWindow = 11

// savgolOrder is the polynomial order of the savgol kernel. An order-3 fit
// needs an effective window of at least 5 samples.
const (
	savgolOrder     = 3
	savgolMinWindow = 5
)

// Smoother replaces imputed positions of a filled series with a locally
// smoothed estimate, removing the staircase artifact naive fills leave at
// gap edges and day seams. It always runs over the flattened cross-day
// series; smoothing each 24-value day row independently would reintroduce
// the very discontinuities this exists to remove.
//
// Observed positions are copied through unchanged.
type Smoother struct {
	Method SmoothMethod
	Window int
}

// NewSmoother returns a Smoother for the given method with the default
// window.
func NewSmoother(method SmoothMethod) Smoother {
	return Smoother{Method: method, Window: DefaultSmoothingWindow}
}

// Smooth returns a new series where positions flagged imputed carry the
// smoothed estimate and all other positions carry filled verbatim. filled
// must be complete (no missing values); imputed is the fill-origin mask.
//
// A nil error with unchanged values is a deliberate no-op (e.g. too few
// observed points for a spline). An error means the kernel itself failed;
// callers keep the pre-smoothing series for that meter and continue.
func (s Smoother) Smooth(filled []float64, imputed []bool) ([]float64, error) {
	if len(filled) != len(imputed) {
		return nil, fmt.Errorf("impute: fill-origin mask length %d != series length %d", len(imputed), len(filled))
	}
	out := make([]float64, len(filled))
	copy(out, filled)

	anyImputed := false
	for _, m := range imputed {
		if m {
			anyImputed = true
			break
		}
	}
	if !anyImputed || len(filled) == 0 {
		return out, nil
	}

	window := s.Window
	if window <= 0 {
		window = DefaultSmoothingWindow
	}

	var smoothed []float64
	var err error
	switch s.Method {
	case SmoothMovingAvg, "":
		smoothed = rollingMean(filled, window)
	case SmoothSpline:
		smoothed, err = splineSmooth(filled, imputed)
	case SmoothSavgol:
		smoothed = savgolSmooth(filled, window)
	default:
		return nil, fmt.Errorf("impute: unknown smoothing method %q", s.Method)
	}
	if err != nil {
		return nil, err
	}

	for i, m := range imputed {
		if m {
			out[i] = smoothed[i]
		}
	}
	return out, nil
}

// rollingMean is a centered moving average with partial windows at the
// edges (min_periods=1 semantics).
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	left := (window - 1) / 2
	right := window / 2
	for i := range values {
		lo := i - left
		if lo < 0 {
			lo = 0
		}
		hi := i + right + 1
		if hi > len(values) {
			hi = len(values)
		}
		sum := 0.0
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// splineSmooth fits a natural cubic spline through the observed positions
// and evaluates it across the whole series. With fewer than 4 observed
// points a cubic is underdetermined, so the series is returned unchanged.
func splineSmooth(filled []float64, imputed []bool) ([]float64, error) {
	var xs, ys []float64
	for i, m := range imputed {
		if !m {
			xs = append(xs, float64(i))
			ys = append(ys, filled[i])
		}
	}
	if len(xs) < 4 {
		out := make([]float64, len(filled))
		copy(out, filled)
		return out, nil
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("impute: spline fit: %w", err)
	}

	lo, hi := xs[0], xs[len(xs)-1]
	out := make([]float64, len(filled))
	for i := range filled {
		x := float64(i)
		// The spline is only defined between the first and last observed
		// point; hold the boundary value outside.
		if x < lo {
			x = lo
		} else if x > hi {
			x = hi
		}
		out[i] = spline.Predict(x)
	}
	return out, nil
}

// savgolSmooth applies a Savitzky-Golay style order-3 polynomial filter:
// each output sample is the centre of a local least-squares cubic fit. When
// the effective window is below 5 samples the fit degrades to the input.
func savgolSmooth(values []float64, window int) []float64 {
	if window > len(values) {
		window = len(values)
	}
	if window%2 == 0 {
		window--
	}
	out := make([]float64, len(values))
	copy(out, values)
	if window < savgolMinWindow {
		return out
	}

	half := window / 2
	for i := range values {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(values) {
			hi = len(values)
		}
		if hi-lo < savgolOrder+1 {
			continue
		}
		out[i] = polyFitCenter(values[lo:hi], i-lo)
	}
	return out
}

// polyFitCenter fits an order-3 polynomial to the window by least squares
// and evaluates it at offset center.
func polyFitCenter(window []float64, center int) float64 {
	n := len(window)
	a := mat.NewDense(n, savgolOrder+1, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		t := float64(i - center)
		p := 1.0
		for j := 0; j <= savgolOrder; j++ {
			a.Set(i, j, p)
			p *= t
		}
		b.SetVec(i, window[i])
	}

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		// Degenerate window; keep the raw value.
		return window[center]
	}
	// Evaluated at t=0 the polynomial reduces to its constant term.
	return coef.AtVec(0)
}
