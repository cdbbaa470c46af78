package tableio

import (
	"fmt"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
	"github.com/xuri/excelize/v2"
)

// xlsxSheet is the worksheet read from and written to.
const xlsxSheet = "Sheet1"

// LoadXLSX reads a reading table from the first sheet of an XLSX workbook.
func LoadXLSX(path string) (*meter.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("tableio: open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("tableio: %s has no sheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("tableio: read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tableio: %s sheet %s is empty", path, sheet)
	}

	sch, err := discoverSchema(rows[0])
	if err != nil {
		return nil, err
	}

	t := &meter.Table{}
	for i, record := range rows[1:] {
		if len(record) == 0 {
			continue // trailing blank rows are common in exported workbooks
		}
		row, err := sch.parseRow(record, i+2)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// SaveXLSX writes a reading table to an XLSX workbook. Missing values
// become empty cells.
func SaveXLSX(path string, t *meter.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	head := header()
	cells := make([]interface{}, len(head))
	for i, h := range head {
		cells[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &cells); err != nil {
		return fmt.Errorf("tableio: write header: %w", err)
	}

	for i, row := range t.Rows {
		cells[0] = row.MeterID
		cells[1] = row.Date.Format(dateLayout)
		for h, v := range row.Values {
			if meter.Missing(v) {
				cells[2+h] = nil
			} else {
				cells[2+h] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("tableio: cell name: %w", err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &cells); err != nil {
			return fmt.Errorf("tableio: write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("tableio: save %s: %w", path, err)
	}
	return nil
}
