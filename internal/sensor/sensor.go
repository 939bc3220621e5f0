// Package sensor defines the navigation unit's view of its onboard sensors
// and provides a simulated source for development and tests.
package sensor

import "errors"

// Init failure sentinels. Init may wrap more than one when several sensors
// are missing; callers check with errors.Is.
var (
	// ErrEnvSensor means the temperature/humidity sensor did not come up.
	ErrEnvSensor = errors.New("sensor: environment sensor unavailable")

	// ErrIMUSensor means the inertial measurement unit did not come up.
	ErrIMUSensor = errors.New("sensor: imu unavailable")
)

// AngularRate is one gyroscope sample in degrees per second, one component
// per body axis.
type AngularRate struct {
	X float64
	Y float64
	Z float64
}

// Environment is an environmental reading.
type Environment struct {
	TempC      float64
	HumidityRH float64
}

// Source supplies sensor readings to the control loop.
//
// The unit refuses to run without its sensors, so Init must be called and
// must succeed before any reads.
type Source interface {
	// Init acquires the underlying sensors. On failure the returned error
	// wraps the sentinel for each sensor that is unavailable.
	Init() error

	// AngularRate returns the next unread gyroscope sample, if one is
	// pending. It never blocks; ok is false when no sample has arrived
	// since the previous call.
	AngularRate() (rate AngularRate, ok bool)

	// Environment returns the latest environmental reading.
	Environment() Environment
}
