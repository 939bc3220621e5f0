package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/position.report/internal/db"
	"github.com/banshee-data/position.report/internal/nav"
	"github.com/banshee-data/position.report/internal/serialmux"
	"github.com/banshee-data/position.report/internal/telemetry"
	"github.com/banshee-data/position.report/internal/units"
)

// fakeMux records commands instead of writing to a serial port.
type fakeMux struct {
	commands []string
	sendErr  error
}

func (f *fakeMux) Subscribe() (string, chan string)       { return "fake", make(chan string) }
func (f *fakeMux) Unsubscribe(string)                     {}
func (f *fakeMux) Monitor(ctx context.Context) error      { <-ctx.Done(); return ctx.Err() }
func (f *fakeMux) Close() error                           { return nil }
func (f *fakeMux) Initialize() error                      { return nil }
func (f *fakeMux) AttachAdminRoutes(mux *http.ServeMux)   {}
func (f *fakeMux) SendCommand(command string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.commands = append(f.commands, command)
	return nil
}

var _ serialmux.SerialMuxInterface = (*fakeMux)(nil)

type testServer struct {
	*Server
	mux   *fakeMux
	db    *db.DB
	cache *serialmux.StatusCache
	http  *http.ServeMux
}

func newTestServer(t *testing.T, lengthUnits string) *testServer {
	t.Helper()
	d, err := db.NewDB(filepath.Join(t.TempDir(), "station.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	fm := &fakeMux{}
	cache := serialmux.NewStatusCache()
	srv := NewServer(fm, d, cache, lengthUnits)
	return &testServer{Server: srv, mux: fm, db: d, cache: cache, http: srv.ServeMux()}
}

func (ts *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	ts.http.ServeHTTP(w, req)
	return w
}

func (ts *testServer) post(t *testing.T, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	ts.http.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func floatPtr(v float64) *float64 { return &v }

func TestShowStatusEmpty(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	w := ts.get(t, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[statusResponse](t, w)
	assert.Equal(t, "m", resp.Units)
	assert.False(t, resp.Navigating)
	assert.Nil(t, resp.LastReport)
	assert.Nil(t, resp.LastEvent)
}

func TestShowStatusFromCache(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	rec := telemetry.Report{
		Timestamp:        5000,
		TempC:            22.5,
		HumidityRH:       45,
		Position:         nav.Vec3{X: 1, Y: 2, Z: 0.5},
		DistanceToTarget: floatPtr(3),
	}
	ts.cache.SetReport(rec, time.Now())
	ts.cache.SetEvent("ACK=TARGET_SET,4,0,0", time.Now())

	w := ts.get(t, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[statusResponse](t, w)
	require.NotNil(t, resp.LastReport)
	assert.True(t, resp.Navigating)
	assert.Equal(t, int64(5000), resp.LastReport.DeviceMs)
	assert.Equal(t, 1.0, resp.LastReport.Position.X)
	require.NotNil(t, resp.LastReport.DistanceToTarget)
	assert.Equal(t, 3.0, *resp.LastReport.DistanceToTarget)
	require.NotNil(t, resp.LastEvent)
	assert.Equal(t, "ACK=TARGET_SET,4,0,0", resp.LastEvent.Line)
}

func TestShowStatusLineCounts(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	w := ts.get(t, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON[statusResponse](t, w)
	assert.Equal(t, serialmux.LineCounts{}, resp.Lines)

	require.NoError(t, serialmux.HandleLine(ts.db, ts.cache, "READY"))
	require.NoError(t, serialmux.HandleLine(ts.db, ts.cache, "ACK=LED_ON"))
	require.NoError(t, serialmux.HandleLine(ts.db, ts.cache, "ERR=UNKNOWN_CMD,VAL=BOGUS"))

	w = ts.get(t, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeJSON[statusResponse](t, w)
	assert.Equal(t, serialmux.LineCounts{Ack: 1, Err: 1, Info: 1}, resp.Lines)
}

func TestShowStatusFallsBackToDB(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	rec := telemetry.Report{Timestamp: 1234, TempC: 20, HumidityRH: 50, Position: nav.Vec3{X: 7}}
	require.NoError(t, ts.db.RecordTelemetry(rec, time.Now()))

	w := ts.get(t, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[statusResponse](t, w)
	require.NotNil(t, resp.LastReport, "status should fall back to stored telemetry")
	assert.Equal(t, int64(1234), resp.LastReport.DeviceMs)
	assert.False(t, resp.Navigating)
}

func TestShowStatusUnitsConversion(t *testing.T) {
	ts := newTestServer(t, units.Feet)

	rec := telemetry.Report{Timestamp: 1, Position: nav.Vec3{X: 1}, DistanceToTarget: floatPtr(1)}
	ts.cache.SetReport(rec, time.Now())

	w := ts.get(t, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[statusResponse](t, w)
	require.NotNil(t, resp.LastReport)
	assert.InDelta(t, 3.280839895, resp.LastReport.Position.X, 1e-6)
	assert.InDelta(t, 3.280839895, *resp.LastReport.DistanceToTarget, 1e-6)
}

func TestListTelemetry(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		rec := telemetry.Report{Timestamp: int64(i+1) * 1000, Position: nav.Vec3{X: float64(i)}}
		require.NoError(t, ts.db.RecordTelemetry(rec, base.Add(time.Duration(i)*time.Second)))
	}

	w := ts.get(t, "/api/telemetry")
	require.Equal(t, http.StatusOK, w.Code)
	rows := decodeJSON[[]db.TelemetryRow](t, w)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(1000), rows[0].DeviceMs)

	w = ts.get(t, "/api/telemetry?limit=1")
	rows = decodeJSON[[]db.TelemetryRow](t, w)
	assert.Len(t, rows, 1)

	w = ts.get(t, "/api/telemetry?limit=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.get(t, "/api/telemetry?units=furlongs")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.get(t, "/api/telemetry?since="+time.Now().Add(time.Hour).UTC().Format(time.RFC3339))
	rows = decodeJSON[[]db.TelemetryRow](t, w)
	assert.Empty(t, rows)

	w = ts.get(t, "/api/telemetry?units=ft&limit=1")
	rows = decodeJSON[[]db.TelemetryRow](t, w)
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.0, rows[0].Position.X, 1e-9)
}

func TestShowTelemetryStats(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	base := time.Now().Add(-time.Minute)
	require.NoError(t, ts.db.RecordTelemetry(telemetry.Report{Timestamp: 1000, TempC: 20, Position: nav.Vec3{}}, base))
	require.NoError(t, ts.db.RecordTelemetry(telemetry.Report{Timestamp: 2000, TempC: 22, Position: nav.Vec3{X: 2}, DistanceToTarget: floatPtr(1)}, base.Add(time.Second)))

	w := ts.get(t, "/api/telemetry/stats")
	require.Equal(t, http.StatusOK, w.Code)

	summary := decodeJSON[db.TelemetrySummary](t, w)
	assert.Equal(t, 2, summary.Samples)
	assert.InDelta(t, 21.0, summary.TempC.Mean, 1e-9)
	assert.InDelta(t, 2.0, summary.PathLengthM, 1e-9)
	assert.Equal(t, 1, summary.DistanceToTarget.Count)
}

func TestListEvents(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	require.NoError(t, ts.db.RecordDeviceEvent("info", "", "", "READY", time.Now()))
	require.NoError(t, ts.db.RecordDeviceEvent("ack", "LED_ON", "", "ACK=LED_ON", time.Now()))

	w := ts.get(t, "/api/events")
	require.Equal(t, http.StatusOK, w.Code)
	events := decodeJSON[[]db.DeviceEvent](t, w)
	require.Len(t, events, 2)
	assert.Equal(t, "ack", events[0].Kind)
}

func TestSendCommand(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	w := ts.post(t, "/api/command", "application/x-www-form-urlencoded", "command=LED=ON")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[commandResponse](t, w)
	assert.Equal(t, "LED=ON", resp.Command)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, []string{"LED=ON"}, ts.mux.commands)

	// The command must be in the log.
	commands, err := ts.db.RecentCommands(10)
	require.NoError(t, err)
	require.Len(t, commands, 1)
	assert.Equal(t, "LED=ON", commands[0].Command)
	assert.Equal(t, "api", commands[0].Source)

	w = ts.post(t, "/api/command", "application/x-www-form-urlencoded", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.get(t, "/api/command")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSetTarget(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	w := ts.post(t, "/api/target", "application/json", `{"x":2,"y":0,"z":-1.5}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[commandResponse](t, w)
	assert.Equal(t, "GOTO=2,0,-1.5", resp.Command)
	assert.Equal(t, []string{"GOTO=2,0,-1.5"}, ts.mux.commands)

	w = ts.post(t, "/api/target", "application/json", `{"x":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetIndicatorClamps(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	w := ts.post(t, "/api/indicator", "application/json", `{"r":300,"g":-10,"b":128}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[commandResponse](t, w)
	assert.Equal(t, "RGB=255,0,128", resp.Command)
}

func TestSendCommandFailure(t *testing.T) {
	ts := newTestServer(t, units.Meters)
	ts.mux.sendErr = context.DeadlineExceeded

	w := ts.post(t, "/api/command", "application/x-www-form-urlencoded", "command=LED=ON")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTrackChart(t *testing.T) {
	ts := newTestServer(t, units.Meters)

	w := ts.get(t, "/debug/charts/track")
	assert.Equal(t, http.StatusNotFound, w.Code, "no telemetry yet")

	for i := 0; i < 3; i++ {
		rec := telemetry.Report{Timestamp: int64(i) * 1000, Position: nav.Vec3{X: float64(i), Y: float64(i * i)}}
		require.NoError(t, ts.db.RecordTelemetry(rec, time.Now().Add(-time.Minute)))
	}

	w = ts.get(t, "/debug/charts/track")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Dead-Reckoned Track")
}
