package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/position.report/internal/httputil"
)

// showTrackChart renders a quick scatter (HTML) of the recorded x/y track
// using go-echarts. This is a debugging-only endpoint to eyeball the
// dead-reckoned track without a frontend. Query params: since (RFC 3339),
// limit.
func (s *Server) showTrackChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	since, err := parseSince(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit, err := parseLimit(r, 5000)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	history, err := s.db.TelemetryHistory(since, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve telemetry: %v", err))
		return
	}
	if len(history) == 0 {
		httputil.NotFound(w, "no telemetry recorded for the requested window")
		return
	}

	data := make([]opts.ScatterData, 0, len(history))
	maxAbs := 0.0
	for _, row := range history {
		x, y := row.Position.X, row.Position.Y
		if math.Abs(x) > maxAbs {
			maxAbs = math.Abs(x)
		}
		if math.Abs(y) > maxAbs {
			maxAbs = math.Abs(y)
		}
		// Third dimension colors the track by device time so direction
		// of travel is visible.
		data = append(data, opts.ScatterData{Value: []interface{}{x, y, row.DeviceMs}})
	}

	// Add a small padding so points at the edges are visible
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	maxMs := float64(history[len(history)-1].DeviceMs)
	if maxMs == 0 {
		maxMs = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Dead-Reckoned Track", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Dead-Reckoned Track (X/Y)", Subtitle: fmt.Sprintf("points=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxMs),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("track", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
