// Command meterfill fills missing hourly readings in a water-meter
// telemetry table and writes the completed table back out.
//
// Usage:
//
//	meterfill -in data/telemetry.csv -out data/imputed.csv -strategy hybrid -smooth
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/aquanet-data/telemetry.fill/internal/config"
	"github.com/aquanet-data/telemetry.fill/internal/impute"
	"github.com/aquanet-data/telemetry.fill/internal/tableio"
	"github.com/aquanet-data/telemetry.fill/internal/version"
)

func main() {
	var (
		inPath     = flag.String("in", "", "input table (.csv, .csv.gz, .xlsx, .db/.sqlite)")
		outPath    = flag.String("out", "", "output table (same formats as -in)")
		configPath = flag.String("config", "", "optional JSON engine config (flags override it)")

		strategy     = flag.String("strategy", "", "fill strategy: linear, svd or hybrid")
		nComponents  = flag.Int("rank", 0, "SVD completion rank bound (n_components)")
		maxIter      = flag.Int("max-iterations", 0, "SVD refinement iteration bound")
		tolerance    = flag.Float64("tolerance", 0, "SVD convergence tolerance")
		noMonotonic  = flag.Bool("no-monotonic", false, "disable the non-decreasing enforcement pass")
		smooth       = flag.Bool("smooth", false, "smooth imputed regions after filling")
		smoothMethod = flag.String("smooth-method", "", "smoothing kernel: moving_avg, spline or savgol")
		smoothWindow = flag.Int("smooth-window", 0, "smoothing window in samples")
		gapThreshold = flag.Int("gap-threshold", 0, "small/large gap boundary in hours (hybrid mode)")
		workers      = flag.Int("workers", 0, "meter-parallel workers (0 = one per CPU)")
		quiet        = flag.Bool("quiet", false, "suppress progress output")
		showVersion  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("meterfill", version.String())
		return
	}

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "meterfill: -in and -out are required")
		flag.Usage()
		os.Exit(2)
	}

	opts := impute.DefaultOptions()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("meterfill: %v", err)
		}
		opts = cfg.Options()
	}
	if *strategy != "" {
		opts.Strategy = impute.Strategy(*strategy)
	}
	if *nComponents > 0 {
		opts.NComponents = *nComponents
	}
	if *maxIter > 0 {
		opts.MaxIterations = *maxIter
	}
	if *tolerance > 0 {
		opts.Tolerance = *tolerance
	}
	if *noMonotonic {
		opts.EnforceMonotonicity = false
	}
	if *smooth {
		opts.Smoothing.Enabled = true
	}
	if *smoothMethod != "" {
		opts.Smoothing.Method = impute.SmoothMethod(*smoothMethod)
	}
	if *smoothWindow > 0 {
		opts.Smoothing.Window = *smoothWindow
	}
	if *gapThreshold > 0 {
		opts.GapThresholdHours = *gapThreshold
	}
	if *workers > 0 {
		opts.Workers = *workers
	}
	if !*quiet {
		opts.Progress = func(percent int, message string) {
			log.Printf("[Progress] %3d%% %s", percent, message)
		}
	}

	pipeline, err := impute.New(opts)
	if err != nil {
		log.Fatalf("meterfill: %v", err)
	}

	table, err := tableio.Load(*inPath)
	if err != nil {
		log.Fatalf("meterfill: load %s: %v", *inPath, err)
	}
	log.Printf("meterfill: loaded %d rows from %s", len(table.Rows), *inPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, rep, err := pipeline.Run(ctx, table)
	if err != nil {
		log.Fatalf("meterfill: %v", err)
	}

	if err := tableio.Save(*outPath, out); err != nil {
		log.Fatalf("meterfill: save %s: %v", *outPath, err)
	}

	log.Printf("meterfill: run %s wrote %d rows to %s (imputed=%d, invalidated=%d, fallbacks=%d, %s)",
		rep.RunID, len(out.Rows), *outPath, rep.Imputed, rep.Invalidated,
		rep.Fallbacks, rep.Elapsed.Round(time.Millisecond))
	if rep.Remaining > 0 {
		log.Printf("meterfill: %d values remain missing (meters with no observations)", rep.Remaining)
	}
}
