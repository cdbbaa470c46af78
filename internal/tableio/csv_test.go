package tableio

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
)

func sampleTable() *meter.Table {
	t := &meter.Table{}
	for d := 0; d < 2; d++ {
		row := meter.Row{
			MeterID: "W-1001",
			Date:    time.Date(2025, time.March, 1+d, 0, 0, 0, 0, time.UTC),
		}
		for h := 0; h < meter.HoursPerDay; h++ {
			row.Values[h] = float64(1000 + d*24 + h)
		}
		// A couple of gaps per row.
		row.Values[3] = meter.MissingValue()
		row.Values[17] = meter.MissingValue()
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestCSVRoundTrip(t *testing.T) {
	want := sampleTable()
	path := filepath.Join(t.TempDir(), "readings.csv")

	if err := SaveCSV(path, want); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	got, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVGzipRoundTrip(t *testing.T) {
	want := sampleTable()
	path := filepath.Join(t.TempDir(), "readings.csv.gz")

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSVAlternateColumnNames(t *testing.T) {
	// Upstream export headers: id_contador / data, mixed case.
	var sb strings.Builder
	sb.WriteString("ID_Contador,Data")
	for h := 0; h < meter.HoursPerDay; h++ {
		sb.WriteString(",Index_")
		sb.WriteString(strings.TrimPrefix(meter.ValueColumn(h), "index_"))
	}
	sb.WriteString("\nW-7,2025-03-01")
	for h := 0; h < meter.HoursPerDay; h++ {
		sb.WriteString(",1.5")
	}
	sb.WriteString("\n")

	table, err := ReadCSV(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0].MeterID != "W-7" {
		t.Fatalf("unexpected table: %+v", table.Rows)
	}
}

func TestReadCSVMissingCellSpellings(t *testing.T) {
	header := strings.Join(headerFields(), ",")
	cells := make([]string, meter.HoursPerDay)
	for i := range cells {
		cells[i] = "5"
	}
	cells[0], cells[1], cells[2], cells[3] = "", "NaN", "null", "NA"

	in := header + "\nm1,2025-03-01," + strings.Join(cells, ",") + "\n"
	table, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	row := table.Rows[0]
	for h := 0; h < 4; h++ {
		if !meter.Missing(row.Values[h]) {
			t.Errorf("Values[%d] = %v, want missing", h, row.Values[h])
		}
	}
	if row.Values[4] != 5 {
		t.Errorf("Values[4] = %v, want 5", row.Values[4])
	}
}

func headerFields() []string {
	return append([]string{meter.MeterIDColumn, meter.DateColumn}, meter.ValueColumns()...)
}

func TestReadCSVSchemaErrors(t *testing.T) {
	hourCols := strings.Join(meter.ValueColumns(), ",")
	cases := []struct {
		name   string
		header string
	}{
		{"no meter column", "date," + hourCols},
		{"no date column", "id," + hourCols},
		{"no value columns", "id,date"},
		{"incomplete hours", "id,date,index_0,index_1"},
	}
	for _, tc := range cases {
		_, err := ReadCSV(strings.NewReader(tc.header + "\n"))
		if err == nil {
			t.Errorf("%s: ReadCSV accepted header %q", tc.name, tc.header)
		}
	}
}

func TestReadCSVBadCells(t *testing.T) {
	header := strings.Join(headerFields(), ",")
	good := make([]string, meter.HoursPerDay)
	for i := range good {
		good[i] = "1"
	}
	cells := strings.Join(good, ",")

	cases := []struct {
		name string
		row  string
	}{
		{"bad value", "m1,2025-03-01," + strings.Replace(cells, "1", "oops", 1)},
		{"bad date", "m1,not-a-date," + cells},
		{"empty meter id", ",2025-03-01," + cells},
	}
	for _, tc := range cases {
		_, err := ReadCSV(strings.NewReader(header + "\n" + tc.row + "\n"))
		if err == nil {
			t.Errorf("%s: ReadCSV accepted row %q", tc.name, tc.row)
		}
	}
}

func TestLoadSaveUnsupportedExtension(t *testing.T) {
	if _, err := Load("readings.parquet"); err == nil {
		t.Error("Load accepted an unsupported format")
	}
	if err := Save("readings.parquet", &meter.Table{}); err == nil {
		t.Error("Save accepted an unsupported format")
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-03-05", "2025-03-05 13:45:00", "05/03/2025"} {
		got, err := parseDate(in)
		if err != nil {
			t.Errorf("parseDate(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseDate(%q) = %v, want %v", in, got, want)
		}
	}
}
