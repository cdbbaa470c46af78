package tableio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
	"github.com/klauspost/compress/gzip"
)

// LoadCSV reads a reading table from a CSV file. A .gz suffix enables
// transparent gzip decompression.
func LoadCSV(path string) (*meter.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tableio: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if hasSuffixFold(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("tableio: gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadCSV(r)
}

// ReadCSV reads a reading table from CSV content.
func ReadCSV(r io.Reader) (*meter.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // validated per row against the schema

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("tableio: read header: %w", err)
	}
	sch, err := discoverSchema(head)
	if err != nil {
		return nil, err
	}

	t := &meter.Table{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tableio: read row %d: %w", line, err)
		}
		row, err := sch.parseRow(record, line)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// SaveCSV writes a reading table to a CSV file. A .gz suffix enables gzip
// compression.
func SaveCSV(path string, t *meter.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tableio: create %s: %w", path, err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if hasSuffixFold(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if err := WriteCSV(w, t); err != nil {
		f.Close()
		return err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return fmt.Errorf("tableio: close gzip %s: %w", path, err)
		}
	}
	return f.Close()
}

// WriteCSV writes a reading table as CSV content.
func WriteCSV(w io.Writer, t *meter.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return fmt.Errorf("tableio: write header: %w", err)
	}

	record := make([]string, 2+meter.HoursPerDay)
	for _, row := range t.Rows {
		record[0] = row.MeterID
		record[1] = row.Date.Format(dateLayout)
		for h, v := range row.Values {
			record[2+h] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("tableio: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
