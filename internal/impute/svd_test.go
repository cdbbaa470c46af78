package impute

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
)

// rampMatrix builds a smooth cumulative series over the given days: a
// linear ramp with a mild daily profile, so the (days x 24) matrix is
// low-rank and SVD completion has structure to exploit.
func rampMatrix(days int) []float64 {
	values := make([]float64, days*meter.HoursPerDay)
	for i := range values {
		h := i % meter.HoursPerDay
		values[i] = 1000 + 2*float64(i) + 0.5*float64(h)
	}
	return values
}

func punchHoles(values []float64, frac float64, seed int64) []bool {
	rng := rand.New(rand.NewSource(seed))
	missing := make([]bool, len(values))
	for i := range values {
		if rng.Float64() < frac {
			values[i] = nan()
			missing[i] = true
		}
	}
	// Keep at least one observation so the fill has an anchor.
	if values[0] != values[0] {
		values[0] = 1000
		missing[0] = false
	}
	return missing
}

func TestSVDFillCompletes(t *testing.T) {
	days := 10
	truth := rampMatrix(days)
	values := make([]float64, len(truth))
	copy(values, truth)
	missing := punchHoles(values, 0.3, 42)

	f := NewSVDFiller()
	f.NComponents = 5
	filled, info, err := f.Fill(values, days)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if info.Iterations == 0 {
		t.Error("refinement never iterated")
	}

	for i := range filled {
		if meter.Missing(filled[i]) {
			t.Fatalf("filled[%d] still missing", i)
		}
		if filled[i] < 0 {
			t.Errorf("filled[%d] = %v, want non-negative", i, filled[i])
		}
	}

	// Observed values are restored verbatim.
	for i := range values {
		if !missing[i] && filled[i] != truth[i] {
			t.Errorf("observed filled[%d] = %v, want %v", i, filled[i], truth[i])
		}
	}

	// The ramp is near low-rank, so completed values should track it.
	for i := range filled {
		if !missing[i] {
			continue
		}
		rel := math.Abs(filled[i]-truth[i]) / truth[i]
		if rel > 0.05 {
			t.Errorf("filled[%d] = %v, truth %v (rel err %.3f)", i, filled[i], truth[i], rel)
		}
	}
}

func TestSVDFillRankClampSkipsRefinement(t *testing.T) {
	// A single day gives min(days, 24)-1 = 0: no refinement, but the
	// initial estimate must still complete the series.
	values := make([]float64, meter.HoursPerDay)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	values[5], values[6] = nan(), nan()

	filled, info, err := NewSVDFiller().Fill(values, 1)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if info.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0 for a rank-0 clamp", info.Iterations)
	}
	for i := range filled {
		if meter.Missing(filled[i]) {
			t.Errorf("filled[%d] still missing", i)
		}
	}
}

func TestSVDFillNoObservations(t *testing.T) {
	values := make([]float64, 2*meter.HoursPerDay)
	for i := range values {
		values[i] = nan()
	}
	if _, _, err := NewSVDFiller().Fill(values, 2); err == nil {
		t.Fatal("Fill succeeded on a meter with no observations")
	}
}

func TestSVDFillConverges(t *testing.T) {
	days := 8
	values := rampMatrix(days)
	punchHoles(values, 0.2, 7)

	f := NewSVDFiller()
	f.MaxIterations = 50
	_, info, err := f.Fill(values, days)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if !info.Converged && info.Iterations == 50 {
		t.Errorf("no convergence after %d iterations on low-rank data", info.Iterations)
	}
}
