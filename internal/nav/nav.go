// Package nav implements the dead-reckoning core of the navigation unit:
// integration of gyroscope rates into orientation and position, and the
// target state machine that drives arrival signalling and the indicator.
//
// All positions are meters in the unit's launch frame. Orientation is a
// yaw/pitch pair in radians. The package does no I/O and keeps no clock;
// callers pass in monotonic microsecond/millisecond readings.
package nav

import "math"

// Vec3 is a position or target in meters.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
