package report

import (
	"fmt"
	"io"
	"os"

	"github.com/aquanet-data/telemetry.fill/internal/meter"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderHeatmapHTML writes a self-contained interactive heatmap of the
// missing-data pattern. Meter identities survive here, unlike the PNG, so
// a reviewer can hover a red band and read off which meter it is.
func RenderHeatmapHTML(table *meter.Table, w io.Writer) error {
	grid, ids := buildMissingGrid(table, maxHeatmapMeters, maxHeatmapCols)
	if len(grid.cells) == 0 {
		return fmt.Errorf("report: no meter data to plot")
	}

	cols, rows := grid.Dims()
	xLabels := make([]string, cols)
	for c := 0; c < cols; c++ {
		xLabels[c] = fmt.Sprintf("t%d", c)
	}

	data := make([]opts.HeatMapData, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{c, r, grid.Z(c, r)}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Missing data pattern",
			Subtitle: fmt.Sprintf("%d meters sampled, red = missing", rows),
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xLabels}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ids}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: []string{"#50a3ba", "#d94e5d"}},
		}),
	)
	hm.AddSeries("missing", data)

	return hm.Render(w)
}

// SaveHeatmapHTML renders the interactive heatmap to a file.
func SaveHeatmapHTML(table *meter.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	if err := RenderHeatmapHTML(table, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
