// Package indicator abstracts the unit's operator-facing lights: a single
// status LED and an RGB indicator. Implementations are fire-and-forget and
// must never block the control loop.
package indicator

import "github.com/banshee-data/position.report/internal/monitoring"

// Indicator drives the unit's lights.
type Indicator interface {
	// SetLED switches the status LED.
	SetLED(on bool)

	// SetRGB sets the RGB indicator color.
	SetRGB(r, g, b uint8)
}

// Log traces indicator changes through the monitoring logger. It is the
// indicator used by simulated units, where there is no hardware to drive.
type Log struct{}

var _ Indicator = Log{}

func (Log) SetLED(on bool) {
	state := "off"
	if on {
		state = "on"
	}
	monitoring.Logf("indicator: led %s", state)
}

func (Log) SetRGB(r, g, b uint8) {
	monitoring.Logf("indicator: rgb %d,%d,%d", r, g, b)
}
