package impute

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
	"github.com/google/uuid"
)

// Strategy selects the fill path.
type Strategy string

const (
	// StrategyLinear always uses the fast interpolation path.
	StrategyLinear Strategy = "linear"
	// StrategySVD always uses the scientific matrix-completion path,
	// regardless of gap sizes.
	StrategySVD Strategy = "svd"
	// StrategyHybrid routes each meter by its largest gap: meters whose
	// gaps all fit under the threshold take the linear path, the rest take
	// the SVD path.
	StrategyHybrid Strategy = "hybrid"
)

// Smoothing configures the optional post-fill smoothing pass.
type Smoothing struct {
	Enabled bool
	Method  SmoothMethod
	Window  int
}

// Options is the full configuration surface of the engine. Zero values are
// replaced by the documented defaults in New.
type Options struct {
	Strategy            Strategy
	NComponents         int
	MaxIterations       int
	Tolerance           float64
	EnforceMonotonicity bool
	Smoothing           Smoothing
	GapThresholdHours   int
	// Workers bounds the meter-parallel worker pool; 0 means GOMAXPROCS.
	Workers  int
	Progress ProgressFunc
}

// DefaultOptions returns the standard engine configuration: hybrid routing,
// monotonicity on, smoothing off.
func DefaultOptions() Options {
	return Options{
		Strategy:            StrategyHybrid,
		NComponents:         DefaultNComponents,
		MaxIterations:       DefaultMaxIterations,
		Tolerance:           DefaultTolerance,
		EnforceMonotonicity: true,
		Smoothing:           Smoothing{Method: SmoothMovingAvg, Window: DefaultSmoothingWindow},
		GapThresholdHours:   DefaultGapThresholdHours,
	}
}

// FallbackReason classifies a per-meter recovery. Meter-level failures are
// absorbed into the report, never raised as batch errors.
type FallbackReason string

const (
	// FallbackNone means the meter processed normally.
	FallbackNone FallbackReason = ""
	// FallbackNoObservations means the meter had no observed value at all;
	// its series is returned still missing rather than fabricated.
	FallbackNoObservations FallbackReason = "no_observations"
	// FallbackSVDDecomposition means the SVD refinement aborted and the
	// last valid estimate was kept.
	FallbackSVDDecomposition FallbackReason = "svd_decomposition"
	// FallbackSmoothing means smoothing failed and the pre-smoothing
	// filled values were kept.
	FallbackSmoothing FallbackReason = "smoothing"
)

// MeterResult reports how one meter was processed.
type MeterResult struct {
	MeterID        string
	Days           int
	Strategy       string
	MissingBefore  int // before cleaning
	Cleaned        CleanResult
	Imputed        int
	Remaining      int // still missing in the output
	Fallback       FallbackReason
	FallbackDetail string
	SVD            FillInfo
}

// Report summarises a pipeline run.
type Report struct {
	RunID             string
	Strategy          Strategy
	Meters            []MeterResult
	TotalMeters       int
	TotalRows         int
	DuplicatesDropped int
	MissingBefore     int
	Invalidated       int
	Imputed           int
	Remaining         int
	Fallbacks         int
	Elapsed           time.Duration
}

// Pipeline runs the full imputation flow: dedup, per-meter partition,
// clean, fill, monotonicity, optional smoothing, ordered merge. Meters are
// processed by a bounded worker pool; each worker touches only its own
// meter's data.
type Pipeline struct {
	opts     Options
	cleaner  Cleaner
	smoother Smoother
}

// New validates opts and returns a Pipeline.
func New(opts Options) (*Pipeline, error) {
	def := DefaultOptions()
	if opts.Strategy == "" {
		opts.Strategy = def.Strategy
	}
	switch opts.Strategy {
	case StrategyLinear, StrategySVD, StrategyHybrid:
	default:
		return nil, fmt.Errorf("impute: unknown fill strategy %q", opts.Strategy)
	}
	if opts.NComponents <= 0 {
		opts.NComponents = def.NComponents
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.GapThresholdHours <= 0 {
		opts.GapThresholdHours = def.GapThresholdHours
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Smoothing.Window <= 0 {
		opts.Smoothing.Window = DefaultSmoothingWindow
	}
	if opts.Smoothing.Method == "" {
		opts.Smoothing.Method = SmoothMovingAvg
	}
	switch opts.Smoothing.Method {
	case SmoothMovingAvg, SmoothSpline, SmoothSavgol:
	default:
		return nil, fmt.Errorf("impute: unknown smoothing method %q", opts.Smoothing.Method)
	}

	return &Pipeline{
		opts:    opts,
		cleaner: NewCleaner(),
		smoother: Smoother{
			Method: opts.Smoothing.Method,
			Window: opts.Smoothing.Window,
		},
	}, nil
}

// Run processes the table and returns a new table of identical shape with
// missing values resolved, plus the run report. The input table is not
// modified. ctx cancellation stops the run between meters; no meter is
// interrupted mid-fill.
func (p *Pipeline) Run(ctx context.Context, table *meter.Table) (*meter.Table, *Report, error) {
	start := time.Now()
	report := &Report{
		RunID:    uuid.NewString(),
		Strategy: p.opts.Strategy,
	}
	progress := newProgressReporter(p.opts.Progress)

	work := table.Clone()
	report.TotalRows = len(work.Rows)
	report.DuplicatesDropped = work.Deduplicate()
	if report.DuplicatesDropped > 0 {
		log.Printf("[Pipeline] dropped %d duplicate (meter, date) rows", report.DuplicatesDropped)
	}

	series := work.Partition()
	report.TotalMeters = len(series)
	log.Printf("[Pipeline] run %s: %d meters, %d rows, strategy=%s workers=%d",
		report.RunID, report.TotalMeters, len(work.Rows), p.opts.Strategy, p.opts.Workers)
	progress.report(0, fmt.Sprintf("Processing %d meters", report.TotalMeters))

	out := make([]*meter.Series, len(series))
	results := make([]MeterResult, len(series))

	jobs := make(chan int)
	var wg sync.WaitGroup
	var done atomic.Int64

	workers := p.opts.Workers
	if workers > len(series) && len(series) > 0 {
		workers = len(series)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i], results[i] = p.processMeter(series[i])
				n := done.Add(1)
				// Fill work is 0-95%; the merge takes the rest.
				pct := int(95 * n / int64(len(series)))
				progress.report(pct, fmt.Sprintf("Processed meter %d/%d", n, len(series)))
			}
		}()
	}

	var cancelled error
dispatch:
	for i := range series {
		// Checked first so cancellation wins over a ready worker.
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		default:
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, nil, fmt.Errorf("impute: run cancelled: %w", cancelled)
	}

	for _, r := range results {
		report.MissingBefore += r.MissingBefore
		report.Invalidated += r.Cleaned.Invalidated()
		report.Imputed += r.Imputed
		report.Remaining += r.Remaining
		if r.Fallback != FallbackNone {
			report.Fallbacks++
			log.Printf("[Pipeline] meter %s fell back (%s): %s", r.MeterID, r.Fallback, r.FallbackDetail)
		}
	}
	report.Meters = results

	progress.report(95, "Merging results")
	merged := meter.Merge(out)
	report.Elapsed = time.Since(start)
	progress.report(100, "Done")
	log.Printf("[Pipeline] run %s complete in %s: imputed=%d invalidated=%d remaining=%d fallbacks=%d",
		report.RunID, report.Elapsed.Round(time.Millisecond), report.Imputed,
		report.Invalidated, report.Remaining, report.Fallbacks)
	return merged, report, nil
}

// processMeter runs the full per-meter flow. It never returns an error:
// numerical failures degrade to the best available estimate for this meter
// only, with the reason recorded on the result.
func (p *Pipeline) processMeter(s *meter.Series) (*meter.Series, MeterResult) {
	res := MeterResult{
		MeterID:       s.MeterID,
		Days:          s.Days(),
		MissingBefore: s.MissingCount(),
	}

	work := s.Clone()
	res.Cleaned = p.cleaner.Clean(work.Values)

	// Everything missing after cleaning is eligible for overwrite; the
	// rest must survive the pipeline byte-identical.
	origin := work.MissingMask()
	stats := ScanSeries(work)

	filler := p.chooseFiller(stats, &res)
	res.Strategy = filler.Name()

	filled, info, err := filler.Fill(work.Values, work.Days())
	if err != nil {
		// Only ErrNoObservations reaches here: leave the series missing.
		res.Fallback = FallbackNoObservations
		res.FallbackDetail = err.Error()
		res.Remaining = work.MissingCount()
		return work, res
	}
	res.SVD = info
	if info.DecompFailed {
		res.Fallback = FallbackSVDDecomposition
		res.FallbackDetail = fmt.Sprintf("decomposition aborted after %d iterations", info.Iterations)
	}

	if p.opts.EnforceMonotonicity {
		EnforceMonotonicImputed(filled, origin)
	}

	if p.opts.Smoothing.Enabled {
		smoothed, err := p.smoother.Smooth(filled, origin)
		if err != nil {
			res.Fallback = FallbackSmoothing
			res.FallbackDetail = err.Error()
		} else {
			filled = smoothed
			if p.opts.EnforceMonotonicity {
				EnforceMonotonicImputed(filled, origin)
			}
		}
	}

	ClampNonNegative(filled)

	for i, imputed := range origin {
		if imputed && !meter.Missing(filled[i]) {
			res.Imputed++
		}
	}
	work.Values = filled
	res.Remaining = work.MissingCount()
	return work, res
}

// chooseFiller applies the strategy setting. Hybrid honours the gap
// classification: a meter goes to the SVD path only when it has at least
// one gap longer than the threshold.
func (p *Pipeline) chooseFiller(stats GapStats, res *MeterResult) Filler {
	svd := SVDFiller{
		NComponents:   p.opts.NComponents,
		MaxIterations: p.opts.MaxIterations,
		Tolerance:     p.opts.Tolerance,
	}
	switch p.opts.Strategy {
	case StrategyLinear:
		return LinearFiller{}
	case StrategySVD:
		return svd
	default:
		_, large := Classify(stats.Gaps, p.opts.GapThresholdHours)
		if len(large) > 0 {
			return svd
		}
		return LinearFiller{}
	}
}
