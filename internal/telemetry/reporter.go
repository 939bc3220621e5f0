// Package telemetry defines the unit's periodic status record and the
// reporter that paces its emission. The same Report type is used on both
// ends of the link: the unit marshals it, the station unmarshals it.
package telemetry

import (
	"encoding/json"

	"github.com/banshee-data/position.report/internal/nav"
	"github.com/banshee-data/position.report/internal/sensor"
)

// Report is one telemetry record, emitted as a single JSON line.
//
// Timestamp is monotonic milliseconds since the unit started, not wall
// time; the station stamps its own receive time when it stores a record.
// DistanceToTarget is present only while the unit is navigating toward a
// target. Absence is meaningful (idle or holding after arrival), so the
// field is a pointer rather than a zero-valued sentinel.
type Report struct {
	Timestamp        int64    `json:"timestamp"`
	TempC            float64  `json:"temp_c"`
	HumidityRH       float64  `json:"humidity_rh"`
	Position         nav.Vec3 `json:"position"`
	DistanceToTarget *float64 `json:"distance_to_target,omitempty"`
}

// Reporter paces telemetry to a fixed interval. It is not safe for
// concurrent use; the control loop is its only caller.
type Reporter struct {
	intervalMs int64
	lastMs     int64
}

// NewReporter returns a Reporter that emits at most one report per
// intervalMs. The first report becomes due one full interval after start.
func NewReporter(intervalMs int64) *Reporter {
	return &Reporter{intervalMs: intervalMs}
}

// Report builds the JSON line for nowMs if the interval has elapsed.
// due is false when it is not yet time; the returned line is empty then.
// distance is included only when hasDistance is true.
func (r *Reporter) Report(nowMs int64, env sensor.Environment, pos nav.Vec3, distance float64, hasDistance bool) (line string, due bool, err error) {
	if nowMs-r.lastMs < r.intervalMs {
		return "", false, nil
	}
	r.lastMs = nowMs

	rec := Report{
		Timestamp:  nowMs,
		TempC:      env.TempC,
		HumidityRH: env.HumidityRH,
		Position:   pos,
	}
	if hasDistance {
		rec.DistanceToTarget = &distance
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return "", true, err
	}
	return string(b), true, nil
}
