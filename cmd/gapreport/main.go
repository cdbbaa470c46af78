// Command gapreport analyses the missing-data pattern of a telemetry table
// and writes a markdown report, JSON metrics and heatmap visualisations.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/aquanet-data/telemetry.fill/internal/report"
	"github.com/aquanet-data/telemetry.fill/internal/tableio"
	"github.com/aquanet-data/telemetry.fill/internal/version"
)

func main() {
	var (
		inPath = flag.String("in", "", "input table (.csv, .csv.gz, .xlsx, .db/.sqlite)")
		outDir = flag.String("out", "gap-report", "output directory for report artifacts")
		noPNG  = flag.Bool("no-png", false, "skip the PNG heatmap")
		noHTML = flag.Bool("no-html", false, "skip the HTML heatmap")

		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("gapreport", version.String())
		return
	}

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "gapreport: -in is required")
		flag.Usage()
		os.Exit(2)
	}

	table, err := tableio.Load(*inPath)
	if err != nil {
		log.Fatalf("gapreport: load %s: %v", *inPath, err)
	}
	log.Printf("gapreport: loaded %d rows from %s", len(table.Rows), *inPath)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("gapreport: %v", err)
	}

	rep := report.Build(table)
	log.Printf("gapreport: %d meters, %.2f%% missing, longest gap %dh",
		rep.Summary.TotalMeters, rep.Summary.MissingPercent, rep.Summary.MaxGapHours)

	mdPath := filepath.Join(*outDir, "gap_report.md")
	if err := writeTo(mdPath, rep.WriteMarkdown); err != nil {
		log.Fatalf("gapreport: %v", err)
	}
	jsonPath := filepath.Join(*outDir, "gap_metrics.json")
	if err := writeTo(jsonPath, rep.WriteJSON); err != nil {
		log.Fatalf("gapreport: %v", err)
	}
	log.Printf("gapreport: wrote %s and %s", mdPath, jsonPath)

	if !*noPNG {
		pngPath := filepath.Join(*outDir, "gap_heatmap.png")
		if err := report.SaveHeatmapPNG(table, pngPath); err != nil {
			log.Fatalf("gapreport: %v", err)
		}
		log.Printf("gapreport: wrote %s", pngPath)
	}
	if !*noHTML {
		htmlPath := filepath.Join(*outDir, "gap_heatmap.html")
		if err := report.SaveHeatmapHTML(table, htmlPath); err != nil {
			log.Fatalf("gapreport: %v", err)
		}
		log.Printf("gapreport: wrote %s", htmlPath)
	}
}

func writeTo(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
