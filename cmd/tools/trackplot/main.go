// Command trackplot renders PNG plots of a recorded run from a station
// database: the dead-reckoned x/y track and, when the unit was navigating,
// distance-to-target over device time.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/position.report/internal/db"
)

var (
	dbFile = flag.String("db", "station.db", "SQLite database path")
	outDir = flag.String("out", "plots", "Output directory for PNGs")
	since  = flag.String("since", "", "Only plot telemetry received after this RFC 3339 time")
	limit  = flag.Int("limit", 100000, "Maximum number of telemetry rows to plot")
)

func plotTrack(history []db.TelemetryRow, path string) error {
	pts := make(plotter.XYs, len(history))
	for i, row := range history {
		pts[i].X = row.Position.X
		pts[i].Y = row.Position.Y
	}

	p := plot.New()
	p.Title.Text = "Dead-reckoned track"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build track line: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)

	start, err := plotter.NewScatter(plotter.XYs{pts[0]})
	if err != nil {
		return fmt.Errorf("failed to build start marker: %w", err)
	}
	start.GlyphStyle.Radius = vg.Points(4)
	start.GlyphStyle.Color = color.RGBA{G: 160, A: 255}
	p.Add(start)

	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}

func plotDistance(history []db.TelemetryRow, path string) (bool, error) {
	var pts plotter.XYs
	for _, row := range history {
		if row.DistanceToTarget == nil {
			continue
		}
		pts = append(pts, plotter.XY{
			X: float64(row.DeviceMs) / 1000.0,
			Y: *row.DistanceToTarget,
		})
	}
	if len(pts) == 0 {
		return false, nil
	}

	p := plot.New()
	p.Title.Text = "Distance to target"
	p.X.Label.Text = "Device time (s)"
	p.Y.Label.Text = "Distance (m)"
	p.Y.Min = 0

	line, err := plotter.NewLine(pts)
	if err != nil {
		return false, fmt.Errorf("failed to build distance line: %w", err)
	}
	line.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	p.Add(line)

	if err := p.Save(12*vg.Inch, 5*vg.Inch, path); err != nil {
		return false, err
	}
	return true, nil
}

func main() {
	flag.Parse()

	var sinceTime time.Time
	if *since != "" {
		var err error
		sinceTime, err = time.Parse(time.RFC3339, *since)
		if err != nil {
			log.Fatalf("invalid -since: %v", err)
		}
	}

	database, err := db.OpenDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	history, err := database.TelemetryHistory(sinceTime, *limit)
	if err != nil {
		log.Fatalf("failed to load telemetry: %v", err)
	}
	if len(history) == 0 {
		log.Fatal("no telemetry in the requested window")
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	trackFile := filepath.Join(*outDir, "track.png")
	if err := plotTrack(history, trackFile); err != nil {
		log.Fatalf("failed to plot track: %v", err)
	}
	log.Printf("wrote %s (%d points)", trackFile, len(history))

	distFile := filepath.Join(*outDir, "distance.png")
	wrote, err := plotDistance(history, distFile)
	if err != nil {
		log.Fatalf("failed to plot distance: %v", err)
	}
	if wrote {
		log.Printf("wrote %s", distFile)
	} else {
		log.Print("no navigating samples; skipping distance plot")
	}
}
