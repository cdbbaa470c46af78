// Package report generates gap-analysis artifacts for a reading table:
// per-meter gap statistics, a markdown summary, JSON metrics, and missing-
// data heatmaps (static PNG and self-contained HTML).
package report

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/aquanet-data/telemetry.fill/internal/impute"
	"github.com/aquanet-data/telemetry.fill/internal/meter"
	"github.com/google/uuid"
)

// Missing-rate bands used in the summary and recommendations. Percentages.
const (
	lightBand    = 10
	moderateBand = 50
	// A gap longer than a week deserves an explicit warning: linear fill
	// across it invents a week of flat consumption.
	longGapWarnHours = 168
)

// MeterStats holds one meter's gap statistics.
type MeterStats struct {
	MeterID          string  `json:"meter_id"`
	Days             int     `json:"days"`
	MissingCount     int     `json:"missing_count"`
	MissingPercent   float64 `json:"missing_pct"`
	NumGaps          int     `json:"num_gaps"`
	MaxGapHours      int     `json:"max_gap_hours"`
	AvgGapHours      float64 `json:"avg_gap_hours"`
	MedianGapHours   float64 `json:"median_gap_hours"`
	FullyMissingDays int     `json:"fully_missing_days"`
}

// Summary holds table-wide gap statistics.
type Summary struct {
	TotalMeters    int     `json:"total_meters"`
	TotalRows      int     `json:"total_rows"`
	TotalValues    int     `json:"total_values"`
	MissingCount   int     `json:"missing_count"`
	MissingPercent float64 `json:"missing_pct"`
	MaxGapHours    int     `json:"max_gap_hours"`

	// Meter counts by missing-rate band.
	MetersComplete int `json:"meters_complete"`
	MetersLight    int `json:"meters_light"`    // (0, 10]
	MetersModerate int `json:"meters_moderate"` // (10, 50]
	MetersHeavy    int `json:"meters_heavy"`    // (50, 100)
	MetersEmpty    int `json:"meters_empty"`    // 100
}

// GapReport is the full gap analysis for one table.
type GapReport struct {
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Summary     Summary      `json:"summary"`
	Meters      []MeterStats `json:"meters"`
}

// Build computes the gap report for a table. The table is not modified.
func Build(table *meter.Table) *GapReport {
	r := &GapReport{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}
	r.Summary.TotalRows = len(table.Rows)

	for _, s := range table.Partition() {
		stats := impute.ScanSeries(s)
		ms := MeterStats{
			MeterID:          s.MeterID,
			Days:             s.Days(),
			MissingCount:     stats.MissingCount,
			MissingPercent:   stats.MissingPercent,
			NumGaps:          len(stats.Gaps),
			MaxGapHours:      stats.MaxGapHours,
			AvgGapHours:      stats.AvgGapHours,
			MedianGapHours:   stats.MedianGapHours,
			FullyMissingDays: len(stats.FullyMissingDay),
		}
		r.Meters = append(r.Meters, ms)

		r.Summary.TotalValues += stats.Total
		r.Summary.MissingCount += stats.MissingCount
		if stats.MaxGapHours > r.Summary.MaxGapHours {
			r.Summary.MaxGapHours = stats.MaxGapHours
		}
		switch {
		case stats.MissingPercent == 0:
			r.Summary.MetersComplete++
		case stats.MissingPercent <= lightBand:
			r.Summary.MetersLight++
		case stats.MissingPercent <= moderateBand:
			r.Summary.MetersModerate++
		case stats.MissingPercent < 100:
			r.Summary.MetersHeavy++
		default:
			r.Summary.MetersEmpty++
		}
	}

	r.Summary.TotalMeters = len(r.Meters)
	if r.Summary.TotalValues > 0 {
		r.Summary.MissingPercent = 100 * float64(r.Summary.MissingCount) / float64(r.Summary.TotalValues)
	}
	return r
}

// WorstMeters returns up to n meters ordered by descending missing percent.
func (r *GapReport) WorstMeters(n int) []MeterStats {
	sorted := make([]MeterStats, len(r.Meters))
	copy(sorted, r.Meters)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MissingPercent > sorted[j].MissingPercent
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// WriteJSON writes the report as indented JSON.
func (r *GapReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
