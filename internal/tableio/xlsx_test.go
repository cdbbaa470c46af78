package tableio

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestXLSXRoundTrip(t *testing.T) {
	want := sampleTable()
	path := filepath.Join(t.TempDir(), "readings.xlsx")

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

func TestXLSXLoadMissingFile(t *testing.T) {
	if _, err := LoadXLSX(filepath.Join(t.TempDir(), "absent.xlsx")); err == nil {
		t.Fatal("LoadXLSX succeeded on a missing file")
	}
}
