// Package meter defines the reading-table data model shared by the
// imputation engine, the table loaders and the gap reports: per-meter daily
// rows of 24 hourly cumulative readings, and the flattened per-meter series
// the engine operates on.
package meter

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// HoursPerDay is the number of hourly value columns per meter-day row.
const HoursPerDay = 24

// Canonical column names for tabular input. The hourly columns follow the
// upstream telemetry export convention index_0..index_23.
const (
	MeterIDColumn = "id"
	DateColumn    = "date"
)

// ValueColumn returns the canonical name of the hourly column for hour h.
func ValueColumn(h int) string {
	return fmt.Sprintf("index_%d", h)
}

// ValueColumns returns the 24 hourly column names in hour order.
func ValueColumns() []string {
	cols := make([]string, HoursPerDay)
	for h := 0; h < HoursPerDay; h++ {
		cols[h] = ValueColumn(h)
	}
	return cols
}

// Missing reports whether v encodes an absent reading. NaN is the in-memory
// encoding for both source-missing and cleaner-invalidated values.
func Missing(v float64) bool {
	return math.IsNaN(v)
}

// MissingValue returns the NaN sentinel used for absent readings.
func MissingValue() float64 {
	return math.NaN()
}

// Row is one meter-day record: a meter identifier, a calendar date and 24
// hourly cumulative readings. Absent readings are NaN.
type Row struct {
	MeterID string
	Date    time.Time
	Values  [HoursPerDay]float64
}

// Table is an ordered sequence of meter-day rows, the unit loaded from and
// written back to a tabular file. It is owned exclusively by the processing
// call that created it; nothing mutates it across invocations.
type Table struct {
	Rows []Row
}

// Clone returns a deep copy of the table. Row values are arrays, so copying
// the row slice copies the readings.
func (t *Table) Clone() *Table {
	rows := make([]Row, len(t.Rows))
	copy(rows, t.Rows)
	return &Table{Rows: rows}
}

// MeterIDs returns the distinct meter identifiers in first-seen order.
func (t *Table) MeterIDs() []string {
	seen := make(map[string]bool, len(t.Rows))
	var ids []string
	for _, r := range t.Rows {
		if !seen[r.MeterID] {
			seen[r.MeterID] = true
			ids = append(ids, r.MeterID)
		}
	}
	return ids
}

// Deduplicate removes rows with a duplicate (meter, date) key, keeping the
// first occurrence. Meter id + date are assumed unique downstream, so this
// must run before partitioning.
func (t *Table) Deduplicate() int {
	type key struct {
		id   string
		date time.Time
	}
	seen := make(map[key]bool, len(t.Rows))
	kept := t.Rows[:0]
	dropped := 0
	for _, r := range t.Rows {
		k := key{r.MeterID, r.Date}
		if seen[k] {
			dropped++
			continue
		}
		seen[k] = true
		kept = append(kept, r)
	}
	t.Rows = kept
	return dropped
}

// Partition splits the table into one Series per meter, in first-seen meter
// order. Each series owns copies of its values; partitioning before any fill
// call is what enforces per-meter isolation structurally.
func (t *Table) Partition() []*Series {
	byMeter := make(map[string][]Row)
	order := t.MeterIDs()
	for _, r := range t.Rows {
		byMeter[r.MeterID] = append(byMeter[r.MeterID], r)
	}
	out := make([]*Series, 0, len(order))
	for _, id := range order {
		out = append(out, NewSeries(id, byMeter[id]))
	}
	return out
}

// Merge reassembles a table from per-meter series by ordered concatenation.
func Merge(series []*Series) *Table {
	var t Table
	for _, s := range series {
		t.Rows = append(t.Rows, s.Rows()...)
	}
	return &t
}

// Series is one meter's chronologically ordered readings flattened across
// day boundaries into a single sequence of length 24 x days. Monotonicity
// and continuous smoothing are defined over this sequence, never the table.
type Series struct {
	MeterID string
	Dates   []time.Time // sorted ascending, one per day row
	Values  []float64   // len = HoursPerDay * len(Dates), NaN = missing
}

// NewSeries builds a flattened series from a meter's rows, sorting them by
// date. The rows must all belong to the same meter.
func NewSeries(meterID string, rows []Row) *Series {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	s := &Series{
		MeterID: meterID,
		Dates:   make([]time.Time, len(sorted)),
		Values:  make([]float64, 0, len(sorted)*HoursPerDay),
	}
	for i, r := range sorted {
		s.Dates[i] = r.Date
		s.Values = append(s.Values, r.Values[:]...)
	}
	return s
}

// Days returns the number of day rows in the series.
func (s *Series) Days() int {
	return len(s.Dates)
}

// Clone returns a deep copy of the series.
func (s *Series) Clone() *Series {
	c := &Series{
		MeterID: s.MeterID,
		Dates:   make([]time.Time, len(s.Dates)),
		Values:  make([]float64, len(s.Values)),
	}
	copy(c.Dates, s.Dates)
	copy(c.Values, s.Values)
	return c
}

// MissingMask returns a boolean mask parallel to Values, true where missing.
func (s *Series) MissingMask() []bool {
	mask := make([]bool, len(s.Values))
	for i, v := range s.Values {
		mask[i] = Missing(v)
	}
	return mask
}

// MissingCount returns the number of missing positions.
func (s *Series) MissingCount() int {
	n := 0
	for _, v := range s.Values {
		if Missing(v) {
			n++
		}
	}
	return n
}

// ObservedCount returns the number of present positions.
func (s *Series) ObservedCount() int {
	return len(s.Values) - s.MissingCount()
}

// Rows splits the flattened series back into meter-day rows.
func (s *Series) Rows() []Row {
	rows := make([]Row, s.Days())
	for d := range rows {
		rows[d].MeterID = s.MeterID
		rows[d].Date = s.Dates[d]
		copy(rows[d].Values[:], s.Values[d*HoursPerDay:(d+1)*HoursPerDay])
	}
	return rows
}

// Date normalises a timestamp to a calendar date in UTC. Table loaders use
// this so (meter, date) keys compare by day regardless of source timezone
// noise.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
