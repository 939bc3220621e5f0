package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/position.report/internal/nav"
	"github.com/banshee-data/position.report/internal/sensor"
)

const testIntervalMs = 1000

var testEnv = sensor.Environment{TempC: 21.5, HumidityRH: 40}

func TestReporter_IntervalGating(t *testing.T) {
	r := NewReporter(testIntervalMs)

	// Not due until a full interval has elapsed since start.
	for _, now := range []int64{0, 1, 500, 999} {
		if _, due, _ := r.Report(now, testEnv, nav.Vec3{}, 0, false); due {
			t.Errorf("report due at %dms, want not due before %dms", now, testIntervalMs)
		}
	}

	if _, due, err := r.Report(1000, testEnv, nav.Vec3{}, 0, false); !due || err != nil {
		t.Fatalf("report at 1000ms: due=%v err=%v, want due", due, err)
	}

	// The interval re-anchors on emission, not on schedule.
	if _, due, _ := r.Report(1999, testEnv, nav.Vec3{}, 0, false); due {
		t.Error("report due at 1999ms, want not due until 2000ms")
	}
	if _, due, _ := r.Report(2500, testEnv, nav.Vec3{}, 0, false); !due {
		t.Error("report not due at 2500ms")
	}
	if _, due, _ := r.Report(3000, testEnv, nav.Vec3{}, 0, false); due {
		t.Error("report due at 3000ms, only 500ms after the 2500ms report")
	}
}

func TestReporter_RecordShapeWhileNavigating(t *testing.T) {
	r := NewReporter(testIntervalMs)

	line, due, err := r.Report(1500, testEnv, nav.Vec3{X: 1, Y: 2, Z: 3}, 4.5, true)
	if !due || err != nil {
		t.Fatalf("due=%v err=%v, want due with no error", due, err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, line)
	}

	want := map[string]any{
		"timestamp":          float64(1500),
		"temp_c":             21.5,
		"humidity_rh":        40.0,
		"position":           map[string]any{"x": 1.0, "y": 2.0, "z": 3.0},
		"distance_to_target": 4.5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestReporter_DistanceOmittedWhenNotNavigating(t *testing.T) {
	r := NewReporter(testIntervalMs)

	line, due, err := r.Report(1000, testEnv, nav.Vec3{}, 0, false)
	if !due || err != nil {
		t.Fatalf("due=%v err=%v, want due with no error", due, err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if _, present := got["distance_to_target"]; present {
		t.Errorf("distance_to_target present in %s, want omitted", line)
	}
}

// The station parses reports back into the same struct.
func TestReport_RoundTrip(t *testing.T) {
	r := NewReporter(testIntervalMs)
	line, _, err := r.Report(2000, testEnv, nav.Vec3{X: -0.5, Y: 12, Z: 0.125}, 7.25, true)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	var parsed Report
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	dist := 7.25
	want := Report{
		Timestamp:        2000,
		TempC:            21.5,
		HumidityRH:       40,
		Position:         nav.Vec3{X: -0.5, Y: 12, Z: 0.125},
		DistanceToTarget: &dist,
	}
	if diff := cmp.Diff(want, parsed); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
