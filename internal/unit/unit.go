// Package unit assembles the navigation unit and runs its control loop.
//
// One goroutine owns all device state and steps it in fixed phases per
// tick: integrate the latest gyro sample, evaluate arrival, drain pending
// command bytes, then emit telemetry if due. A second goroutine pumps
// transport bytes into a buffered channel so no phase ever blocks; bytes
// received mid-tick take effect on the next drain, which keeps command
// effects off the current tick's arrival evaluation.
package unit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/position.report/internal/config"
	"github.com/banshee-data/position.report/internal/indicator"
	"github.com/banshee-data/position.report/internal/monitoring"
	"github.com/banshee-data/position.report/internal/nav"
	"github.com/banshee-data/position.report/internal/protocol"
	"github.com/banshee-data/position.report/internal/sensor"
	"github.com/banshee-data/position.report/internal/telemetry"
	"github.com/banshee-data/position.report/internal/timeutil"
)

// Boot-time lines. The unit refuses to enter its loop without sensors; the
// supervising process sees the error lines on the wire and a non-nil error
// from Run.
const (
	lineReady      = "READY"
	lineBanner     = "Commands: LED=ON|OFF, RGB=r,g,b (0-255), GOTO=x,y,z"
	lineEnvInit    = "ERR=ENV_INIT"
	lineIMUInit    = "ERR=IMU_INIT"
	lineInitFailed = "ERR=INIT_FAILED"
)

const inboundBuffer = 4096

// Unit is one navigation unit: sensors, indicator, transport and the
// navigation state behind them.
type Unit struct {
	clock     timeutil.Clock
	sensors   sensor.Source
	transport io.ReadWriter

	integ    *nav.Integrator
	machine  *nav.Machine
	proto    *protocol.Handler
	reporter *telemetry.Reporter

	inbound chan byte
	tick    time.Duration
}

// New assembles a Unit from its capabilities and tuning.
func New(cfg *config.TuningConfig, clock timeutil.Clock, sensors sensor.Source, ind indicator.Indicator, transport io.ReadWriter) *Unit {
	integ := nav.NewIntegrator(cfg.GetSpeedMPS(), cfg.GetGyroDeadbandRad())
	machine := nav.NewMachine(cfg.GetTargetThresholdM(), cfg.GetReachedHoldMs(), ind, integ.Rearm)

	return &Unit{
		clock:     clock,
		sensors:   sensors,
		transport: transport,
		integ:     integ,
		machine:   machine,
		proto:     protocol.NewHandler(ind, machine),
		reporter:  telemetry.NewReporter(cfg.GetReportIntervalMs()),
		inbound:   make(chan byte, inboundBuffer),
		tick:      cfg.GetTickInterval(),
	}
}

// Boot acquires the sensors. On failure it emits one ERR line per missing
// sensor plus the final ERR=INIT_FAILED, and returns the init error; the
// loop must not run.
func (u *Unit) Boot() error {
	if err := u.sensors.Init(); err != nil {
		if errors.Is(err, sensor.ErrEnvSensor) {
			u.writeLine(lineEnvInit)
		}
		if errors.Is(err, sensor.ErrIMUSensor) {
			u.writeLine(lineIMUInit)
		}
		u.writeLine(lineInitFailed)
		return fmt.Errorf("sensor init: %w", err)
	}

	u.writeLine(lineReady)
	u.writeLine(lineBanner)
	return nil
}

// Run boots the unit and ticks until ctx is cancelled.
func (u *Unit) Run(ctx context.Context) error {
	if err := u.Boot(); err != nil {
		return err
	}

	go u.pump(ctx)

	ticker := u.clock.NewTicker(u.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			u.Tick()
		}
	}
}

// pump moves transport bytes into the inbound channel. It is the only
// reader of the transport. A full channel drops bytes, the same outcome as
// a UART overrun on real hardware.
func (u *Unit) pump(ctx context.Context) {
	buf := make([]byte, 256)
	for {
		n, err := u.transport.Read(buf)
		for _, b := range buf[:n] {
			select {
			case u.inbound <- b:
			default:
				monitoring.Logf("unit: inbound buffer full, dropping byte")
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				monitoring.Logf("unit: transport read ended: %v", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Tick runs one control-loop pass. Exported so tests and offline drivers
// can step the unit deterministically.
func (u *Unit) Tick() {
	rate, ok := u.sensors.AngularRate()
	u.integ.Update(u.clock.NowMicros(), rate, ok, u.machine.Tracking())

	nowMs := u.clock.NowMillis()
	switch u.machine.Evaluate(u.integ.Position(), nowMs) {
	case nav.EventReached:
		u.writeLine(protocol.AckTargetReached)
	case nav.EventCompleted:
		u.writeLine(protocol.AckTargetComplete)
	}

	u.drainInbound()

	u.emitTelemetry(nowMs)
}

func (u *Unit) drainInbound() {
	for {
		select {
		case b := <-u.inbound:
			if reply, ok := u.proto.Feed(b); ok {
				u.writeLine(reply)
			}
		default:
			return
		}
	}
}

func (u *Unit) emitTelemetry(nowMs int64) {
	pos := u.integ.Position()
	tracking := u.machine.Tracking()
	var dist float64
	if tracking {
		dist, _ = u.machine.DistanceTo(pos)
	}

	line, due, err := u.reporter.Report(nowMs, u.sensors.Environment(), pos, dist, tracking)
	if err != nil {
		monitoring.Logf("unit: telemetry encode failed: %v", err)
		return
	}
	if due {
		u.writeLine(line)
	}
}

// writeLine sends one protocol line. Write failures are logged and
// dropped; telemetry is a feed, not a queue, and the loop must not stall
// on a detached host.
func (u *Unit) writeLine(line string) {
	if _, err := fmt.Fprintf(u.transport, "%s\n", line); err != nil {
		monitoring.Logf("unit: write failed: %v", err)
	}
}
