package report

import (
	"fmt"
	"io"
)

// WriteMarkdown writes a human-readable gap report: global summary, the
// worst meters, and a quality recommendation for the fill strategy.
func (r *GapReport) WriteMarkdown(w io.Writer) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("# Gap Analysis Report\n\n")
	p("**Run:** %s  \n", r.RunID)
	p("**Generated:** %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	s := r.Summary
	p("## Summary\n\n")
	p("- Meters: %d\n", s.TotalMeters)
	p("- Meter-day rows: %d\n", s.TotalRows)
	p("- Hourly values: %d\n", s.TotalValues)
	p("- Missing: %d (%.2f%%)\n", s.MissingCount, s.MissingPercent)
	p("- Longest gap: %d hours\n\n", s.MaxGapHours)

	p("## Meters by missing rate\n\n")
	p("| band | meters |\n|---|---|\n")
	p("| complete | %d |\n", s.MetersComplete)
	p("| 1-10%% | %d |\n", s.MetersLight)
	p("| 11-50%% | %d |\n", s.MetersModerate)
	p("| >50%% | %d |\n", s.MetersHeavy)
	p("| 100%% empty | %d |\n\n", s.MetersEmpty)

	worst := r.WorstMeters(10)
	if len(worst) > 0 {
		p("## Worst meters\n\n")
		p("| meter | missing %% | gaps | max gap (h) | fully missing days |\n")
		p("|---|---|---|---|---|\n")
		for _, m := range worst {
			p("| %s | %.1f%% | %d | %d | %d |\n",
				m.MeterID, m.MissingPercent, m.NumGaps, m.MaxGapHours, m.FullyMissingDays)
		}
		p("\n")
	}

	p("## Recommendation\n\n")
	switch {
	case s.MissingPercent < 5:
		p("- Few gaps; the linear fill path is sufficient.\n")
	case s.MissingPercent < 20:
		p("- Consider the SVD path for better accuracy on the larger gaps.\n")
	default:
		p("- SVD path recommended: enough data is missing that temporal structure matters.\n")
	}
	if s.MaxGapHours > longGapWarnHours {
		p("- Very long gaps present (%d h); review the affected meters before trusting their fill.\n", s.MaxGapHours)
	}
	if s.MetersEmpty > 0 {
		p("- %d meters have no observations at all and will be left unfilled.\n", s.MetersEmpty)
	}

	return err
}
