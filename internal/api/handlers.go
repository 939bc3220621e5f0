package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/position.report/internal/db"
	"github.com/banshee-data/position.report/internal/httputil"
	"github.com/banshee-data/position.report/internal/nav"
	"github.com/banshee-data/position.report/internal/serialmux"
	"github.com/banshee-data/position.report/internal/telemetry"
	"github.com/banshee-data/position.report/internal/units"
	"github.com/banshee-data/position.report/internal/version"
)

// lengthUnits resolves the length unit for a request: an explicit valid
// ?units= override wins, otherwise the server default applies.
func (s *Server) lengthUnits(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, nil
	}
	if !units.IsValidLength(u) {
		return "", fmt.Errorf("invalid units %q: valid values are %s", u, units.GetValidLengthUnitsString())
	}
	return u, nil
}

func convertVec(v nav.Vec3, targetUnits string) nav.Vec3 {
	return nav.Vec3{
		X: units.ConvertLength(v.X, targetUnits),
		Y: units.ConvertLength(v.Y, targetUnits),
		Z: units.ConvertLength(v.Z, targetUnits),
	}
}

// convertTelemetryRow applies unit conversion to a row's position and
// distance. The database always stores meters.
func convertTelemetryRow(row db.TelemetryRow, targetUnits string) db.TelemetryRow {
	row.Position = convertVec(row.Position, targetUnits)
	if row.DistanceToTarget != nil {
		converted := units.ConvertLength(*row.DistanceToTarget, targetUnits)
		row.DistanceToTarget = &converted
	}
	return row
}

type statusReport struct {
	ReceivedAt       time.Time `json:"received_at"`
	AgeMs            int64     `json:"age_ms"`
	DeviceMs         int64     `json:"device_ms"`
	TempC            float64   `json:"temp_c"`
	HumidityRH       float64   `json:"humidity_rh"`
	Position         nav.Vec3  `json:"position"`
	DistanceToTarget *float64  `json:"distance_to_target,omitempty"`
}

type statusEvent struct {
	Line       string    `json:"line"`
	ReceivedAt time.Time `json:"received_at"`
}

type statusResponse struct {
	Version    string               `json:"version"`
	GitSHA     string               `json:"git_sha"`
	Units      string               `json:"units"`
	Navigating bool                 `json:"navigating"`
	Lines      serialmux.LineCounts `json:"lines"`
	LastReport *statusReport        `json:"last_report,omitempty"`
	LastEvent  *statusEvent         `json:"last_event,omitempty"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	targetUnits, err := s.lengthUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	resp := statusResponse{
		Version: version.Version,
		GitSHA:  version.GitSHA,
		Units:   targetUnits,
		Lines:   s.cache.LineCounts(),
	}

	rec, at, ok := s.cache.Report()
	if !ok {
		// Nothing live yet (station restart); fall back to storage.
		if latest, err := s.db.LatestTelemetry(); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to load latest telemetry: %v", err))
			return
		} else if latest != nil {
			rec = telemetry.Report{
				Timestamp:        latest.DeviceMs,
				TempC:            latest.TempC,
				HumidityRH:       latest.HumidityRH,
				Position:         latest.Position,
				DistanceToTarget: latest.DistanceToTarget,
			}
			at = latest.ReceivedAt
			ok = true
		}
	}

	if ok {
		report := &statusReport{
			ReceivedAt: at,
			AgeMs:      time.Since(at).Milliseconds(),
			DeviceMs:   rec.Timestamp,
			TempC:      rec.TempC,
			HumidityRH: rec.HumidityRH,
			Position:   convertVec(rec.Position, targetUnits),
		}
		if rec.DistanceToTarget != nil {
			converted := units.ConvertLength(*rec.DistanceToTarget, targetUnits)
			report.DistanceToTarget = &converted
			resp.Navigating = true
		}
		resp.LastReport = report
	}

	if line, eventAt := s.cache.LastEvent(); line != "" {
		resp.LastEvent = &statusEvent{Line: line, ReceivedAt: eventAt}
	}

	httputil.WriteJSONOK(w, resp)
}

// parseSince reads the optional ?since= parameter (RFC 3339). The zero
// time means "everything".
func parseSince(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}, nil
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid 'since' parameter: %v", err)
	}
	return since, nil
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid 'limit' parameter")
	}
	return limit, nil
}

func (s *Server) listTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	targetUnits, err := s.lengthUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	since, err := parseSince(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit, err := parseLimit(r, 1000)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	history, err := s.db.TelemetryHistory(since, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve telemetry: %v", err))
		return
	}

	for i := range history {
		history[i] = convertTelemetryRow(history[i], targetUnits)
	}
	if history == nil {
		history = []db.TelemetryRow{}
	}
	httputil.WriteJSONOK(w, history)
}

func (s *Server) showTelemetryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	targetUnits, err := s.lengthUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	since, err := parseSince(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	summary, err := s.db.TelemetrySummary(since)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to compute telemetry stats: %v", err))
		return
	}

	// Length-typed fields get converted; temperature and humidity do not.
	summary.DistanceToTarget.Mean = units.ConvertLength(summary.DistanceToTarget.Mean, targetUnits)
	summary.DistanceToTarget.StdDev = units.ConvertLength(summary.DistanceToTarget.StdDev, targetUnits)
	summary.DistanceToTarget.Min = units.ConvertLength(summary.DistanceToTarget.Min, targetUnits)
	summary.DistanceToTarget.Max = units.ConvertLength(summary.DistanceToTarget.Max, targetUnits)
	summary.PathLengthM = units.ConvertLength(summary.PathLengthM, targetUnits)
	summary.NetDisplacementM = units.ConvertLength(summary.NetDisplacementM, targetUnits)

	httputil.WriteJSONOK(w, summary)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit, err := parseLimit(r, 100)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	events, err := s.db.RecentEvents(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve events: %v", err))
		return
	}
	if events == nil {
		events = []db.DeviceEvent{}
	}
	httputil.WriteJSONOK(w, events)
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit, err := parseLimit(r, 100)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	commands, err := s.db.RecentCommands(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve commands: %v", err))
		return
	}
	if commands == nil {
		commands = []db.CommandRecord{}
	}
	httputil.WriteJSONOK(w, commands)
}

type commandResponse struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

// recordAndSend stores the command, then writes it to the unit. Recording
// first means a command that reached the wire is always in the log, at the
// cost of logging one that then failed to send; the error names the id so
// the two cases can be told apart.
func (s *Server) recordAndSend(w http.ResponseWriter, command, source string) {
	id, err := s.db.RecordCommand(command, source)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to record command: %v", err))
		return
	}

	if err := s.m.SendCommand(command); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to send command %s: %v", id, err))
		return
	}

	httputil.WriteJSONOK(w, commandResponse{ID: id, Command: command})
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	command := r.FormValue("command")
	if command == "" {
		httputil.BadRequest(w, "missing 'command' form value")
		return
	}

	s.recordAndSend(w, command, "api")
}

type targetRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func validCoord(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Server) setTargetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid target body: %v", err))
		return
	}
	if !validCoord(req.X) || !validCoord(req.Y) || !validCoord(req.Z) {
		httputil.BadRequest(w, "target coordinates must be finite")
		return
	}

	command := fmt.Sprintf("GOTO=%s,%s,%s", fmtCoord(req.X), fmtCoord(req.Y), fmtCoord(req.Z))
	s.recordAndSend(w, command, "api")
}

type indicatorRequest struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func (s *Server) setIndicatorHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req indicatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid indicator body: %v", err))
		return
	}

	// Clamp host-side so the recorded command matches the unit's reply.
	command := fmt.Sprintf("RGB=%d,%d,%d", clampChannel(req.R), clampChannel(req.G), clampChannel(req.B))
	s.recordAndSend(w, command, "api")
}
