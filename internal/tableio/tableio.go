// Package tableio loads and saves meter reading tables. Supported formats:
// CSV (optionally gzip-compressed), XLSX workbooks and SQLite databases, all
// carrying the same row shape: a meter id column, a date column and 24
// hourly columns named index_0..index_23.
package tableio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
)

// Configuration errors. These are fatal: no partial output is produced for
// a table whose shape cannot be established.
var (
	ErrNoMeterColumn  = errors.New("tableio: no meter id column found")
	ErrNoDateColumn   = errors.New("tableio: no date column found")
	ErrNoValueColumns = errors.New("tableio: no index_* value columns found")
)

// Column name candidates. The canonical names come from the meter package;
// the alternates match the upstream telemetry export.
var (
	meterIDColumns = []string{meter.MeterIDColumn, "meter_id", "id_contador"}
	dateColumns    = []string{meter.DateColumn, "data", "day"}
)

const dateLayout = "2006-01-02"

// Load reads a table, picking the format from the file extension: .csv,
// .csv.gz, .xlsx, or .db/.sqlite/.sqlite3.
func Load(path string) (*meter.Table, error) {
	switch {
	case hasSuffixFold(path, ".csv"), hasSuffixFold(path, ".csv.gz"):
		return LoadCSV(path)
	case hasSuffixFold(path, ".xlsx"):
		return LoadXLSX(path)
	case hasSuffixFold(path, ".db"), hasSuffixFold(path, ".sqlite"), hasSuffixFold(path, ".sqlite3"):
		return LoadSQLite(path, DefaultSQLiteTable)
	default:
		return nil, fmt.Errorf("tableio: unsupported input format %q", path)
	}
}

// Save writes a table, picking the format from the file extension.
func Save(path string, t *meter.Table) error {
	switch {
	case hasSuffixFold(path, ".csv"), hasSuffixFold(path, ".csv.gz"):
		return SaveCSV(path, t)
	case hasSuffixFold(path, ".xlsx"):
		return SaveXLSX(path, t)
	case hasSuffixFold(path, ".db"), hasSuffixFold(path, ".sqlite"), hasSuffixFold(path, ".sqlite3"):
		return SaveSQLite(path, DefaultSQLiteTable, t)
	default:
		return fmt.Errorf("tableio: unsupported output format %q", path)
	}
}

func hasSuffixFold(s, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(s), suffix)
}

// schema maps a header row to the column indices the table model needs.
type schema struct {
	meterID int
	date    int
	hours   [meter.HoursPerDay]int
}

// discoverSchema resolves the meter id, date and hourly columns from a
// header row. Column matching is case-insensitive.
func discoverSchema(header []string) (schema, error) {
	s := schema{meterID: -1, date: -1}
	for i := range s.hours {
		s.hours[i] = -1
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, name := range meterIDColumns {
		if i, ok := index[name]; ok {
			s.meterID = i
			break
		}
	}
	if s.meterID < 0 {
		return s, ErrNoMeterColumn
	}

	for _, name := range dateColumns {
		if i, ok := index[name]; ok {
			s.date = i
			break
		}
	}
	if s.date < 0 {
		return s, ErrNoDateColumn
	}

	found := 0
	for h := 0; h < meter.HoursPerDay; h++ {
		if i, ok := index[meter.ValueColumn(h)]; ok {
			s.hours[h] = i
			found++
		}
	}
	if found == 0 {
		return s, ErrNoValueColumns
	}
	if found < meter.HoursPerDay {
		return s, fmt.Errorf("tableio: incomplete hourly columns: found %d of %d", found, meter.HoursPerDay)
	}
	return s, nil
}

// parseRow converts one record into a meter-day row. Absent cells are
// missing values, never errors; a malformed number is an error because it
// indicates a column mismatch, not a gap.
func (s schema) parseRow(record []string, line int) (meter.Row, error) {
	var row meter.Row
	if s.meterID >= len(record) || s.date >= len(record) {
		return row, fmt.Errorf("tableio: row %d has %d columns, need at least %d", line, len(record), max(s.meterID, s.date)+1)
	}

	row.MeterID = strings.TrimSpace(record[s.meterID])
	if row.MeterID == "" {
		return row, fmt.Errorf("tableio: row %d has empty meter id", line)
	}

	date, err := parseDate(strings.TrimSpace(record[s.date]))
	if err != nil {
		return row, fmt.Errorf("tableio: row %d: %w", line, err)
	}
	row.Date = date

	for h := 0; h < meter.HoursPerDay; h++ {
		idx := s.hours[h]
		if idx >= len(record) {
			row.Values[h] = meter.MissingValue()
			continue
		}
		v, err := parseValue(record[idx])
		if err != nil {
			return row, fmt.Errorf("tableio: row %d column %s: %w", line, meter.ValueColumn(h), err)
		}
		row.Values[h] = v
	}
	return row, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{dateLayout, "2006-01-02 15:04:05", time.RFC3339, "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return meter.Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "na":
		return meter.MissingValue(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad value %q", s)
	}
	return v, nil
}

func formatValue(v float64) string {
	if meter.Missing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// header returns the canonical output header.
func header() []string {
	return append([]string{meter.MeterIDColumn, meter.DateColumn}, meter.ValueColumns()...)
}
