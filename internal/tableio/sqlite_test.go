package tableio

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
)

func TestSQLiteRoundTrip(t *testing.T) {
	want := sampleTable()
	path := filepath.Join(t.TempDir(), "readings.db")

	if err := SaveSQLite(path, DefaultSQLiteTable, want); err != nil {
		t.Fatalf("SaveSQLite: %v", err)
	}
	got, err := LoadSQLite(path, DefaultSQLiteTable)
	if err != nil {
		t.Fatalf("LoadSQLite: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteSaveReplacesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.sqlite")

	if err := Save(path, sampleTable()); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	// Second save must replace, not append.
	small := &meter.Table{Rows: sampleTable().Rows[:1]}
	if err := Save(path, small); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Rows) != 1 {
		t.Errorf("rows after replace = %d, want 1", len(got.Rows))
	}
}

func TestSQLiteLoadMissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := SaveSQLite(path, "other", &meter.Table{}); err != nil {
		t.Fatalf("SaveSQLite: %v", err)
	}
	if _, err := LoadSQLite(path, "readings"); err == nil {
		t.Fatal("LoadSQLite succeeded on a database without the table")
	}
}
