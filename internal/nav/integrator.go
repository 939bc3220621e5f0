package nav

import (
	"math"

	"github.com/banshee-data/position.report/internal/sensor"
	"github.com/banshee-data/position.report/internal/units"
)

// Integrator dead-reckons orientation and position from gyroscope rates.
// The unit travels at a fixed forward speed whenever it is tracking a
// target, so position is recovered from heading alone: each update rotates
// the heading by rate*dt and advances the position speed*dt along it.
//
// Integrator is not safe for concurrent use; the control loop is its only
// caller.
type Integrator struct {
	speedMPS    float64
	deadbandRad float64

	pos      Vec3
	yawRad   float64
	pitchRad float64

	lastUpdateMicros int64
	rearm            bool
}

// NewIntegrator returns an Integrator at the frame origin with level
// orientation. It starts rearmed: the first active update anchors the
// integration timer instead of integrating.
func NewIntegrator(speedMPS, deadbandRad float64) *Integrator {
	return &Integrator{
		speedMPS:    speedMPS,
		deadbandRad: deadbandRad,
		rearm:       true,
	}
}

// Rearm discards the stored timestamp so the next active update only
// re-anchors the timer. Called whenever a new target is set; otherwise a
// long idle gap would turn into one giant dt on the first update.
func (g *Integrator) Rearm() {
	g.rearm = true
}

// Update advances orientation and position by one sample.
//
// nowMicros is a monotonic microsecond reading. rate is the gyroscope
// sample in degrees/second, valid only when ok is true. active reports
// whether the unit is currently tracking a target; while inactive the
// integrator holds still and stays rearmed.
//
// A rearmed update consumes the call (and its sample, if any) purely to
// anchor the timer. An update without a sample changes nothing, not even
// the timestamp, so the following dt still spans the full gap.
func (g *Integrator) Update(nowMicros int64, rate sensor.AngularRate, ok bool, active bool) {
	if !active {
		g.rearm = true
		return
	}

	if g.rearm {
		g.lastUpdateMicros = nowMicros
		g.rearm = false
		return
	}

	if !ok {
		return
	}

	dt := float64(nowMicros-g.lastUpdateMicros) / 1e6
	g.lastUpdateMicros = nowMicros

	// Z rate steers yaw, Y rate steers pitch. Rates at or below the
	// deadband are sensor noise and must not accumulate.
	yawRate := units.DegToRad(rate.Z)
	pitchRate := units.DegToRad(rate.Y)
	if math.Abs(yawRate) > g.deadbandRad {
		g.yawRad += yawRate * dt
	}
	if math.Abs(pitchRate) > g.deadbandRad {
		g.pitchRad += pitchRate * dt
	}

	step := g.speedMPS * dt
	horizontal := step * math.Cos(g.pitchRad)
	g.pos.X += horizontal * math.Cos(g.yawRad)
	g.pos.Y += horizontal * math.Sin(g.yawRad)
	g.pos.Z += step * math.Sin(g.pitchRad)
}

// Position returns the current dead-reckoned position.
func (g *Integrator) Position() Vec3 {
	return g.pos
}

// Orientation returns the current yaw and pitch in radians.
func (g *Integrator) Orientation() (yawRad, pitchRad float64) {
	return g.yawRad, g.pitchRad
}
