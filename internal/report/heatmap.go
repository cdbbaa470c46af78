package report

import (
	"fmt"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Heatmap sampling bounds. Large tables are strided down so the rendered
// grid stays readable and cheap.
const (
	maxHeatmapMeters = 400
	maxHeatmapCols   = 240
)

// missingGrid is the sampled missing-data mask as a plotter grid. Cell
// value 1 means missing, 0 means present.
type missingGrid struct {
	cells [][]float64 // [meter][time bucket]
}

func (g *missingGrid) Dims() (c, r int) {
	if len(g.cells) == 0 {
		return 0, 0
	}
	return len(g.cells[0]), len(g.cells)
}
func (g *missingGrid) X(c int) float64 { return float64(c) }
func (g *missingGrid) Y(r int) float64 { return float64(r) }
func (g *missingGrid) Z(c, r int) float64 {
	row := g.cells[r]
	if c >= len(row) {
		return 0
	}
	return row[c]
}

// buildMissingGrid samples up to maxMeters meters by stride and buckets
// each flattened series down to at most maxCols columns. A bucket is
// flagged missing when more than half its hours are missing.
func buildMissingGrid(table *meter.Table, maxMeters, maxCols int) (*missingGrid, []string) {
	series := table.Partition()

	stride := 1
	if len(series) > maxMeters {
		stride = (len(series) + maxMeters - 1) / maxMeters
	}

	var grid missingGrid
	var ids []string
	for i := 0; i < len(series); i += stride {
		s := series[i]
		n := len(s.Values)
		if n == 0 {
			continue
		}
		bucket := 1
		if n > maxCols {
			bucket = (n + maxCols - 1) / maxCols
		}
		row := make([]float64, 0, (n+bucket-1)/bucket)
		for start := 0; start < n; start += bucket {
			end := start + bucket
			if end > n {
				end = n
			}
			missing := 0
			for _, v := range s.Values[start:end] {
				if meter.Missing(v) {
					missing++
				}
			}
			if 2*missing > end-start {
				row = append(row, 1)
			} else {
				row = append(row, 0)
			}
		}
		grid.cells = append(grid.cells, row)
		ids = append(ids, s.MeterID)
	}
	return &grid, ids
}

// SaveHeatmapPNG renders the missing-data pattern (meters x time) to a PNG
// file. Red cells are missing data.
func SaveHeatmapPNG(table *meter.Table, path string) error {
	grid, _ := buildMissingGrid(table, maxHeatmapMeters, maxHeatmapCols)
	if len(grid.cells) == 0 {
		return fmt.Errorf("report: no meter data to plot")
	}

	p := plot.New()
	p.Title.Text = "Missing Data Pattern"
	p.X.Label.Text = "Time (hours, bucketed)"
	p.Y.Label.Text = "Meters (sampled)"

	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	hm.Min = 0
	hm.Max = 1
	p.Add(hm)

	if err := p.Save(14*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save heatmap %s: %w", path, err)
	}
	return nil
}
