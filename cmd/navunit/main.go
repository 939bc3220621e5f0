// Command navunit runs a simulated navigation unit: the same control loop
// the firmware runs, speaking the line protocol over stdio or a serial
// port. It exists so the station can be developed and demoed without
// hardware on the bench.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.bug.st/serial"

	"github.com/banshee-data/position.report/internal/config"
	"github.com/banshee-data/position.report/internal/indicator"
	"github.com/banshee-data/position.report/internal/sensor"
	"github.com/banshee-data/position.report/internal/timeutil"
	"github.com/banshee-data/position.report/internal/unit"
)

var (
	configPath = flag.String("config", "", "Tuning config JSON (defaults apply when empty)")
	portPath   = flag.String("port", "", "Serial port to speak the protocol on (stdio when empty)")
	baud       = flag.Int("baud", 115200, "Serial baud rate")
	rateZDeg   = flag.Float64("sim-rate-z", 0, "Steady simulated yaw rate in deg/s")
	tempC      = flag.Float64("sim-temp", 21.5, "Simulated temperature in C")
	humidityRH = flag.Float64("sim-humidity", 40.0, "Simulated relative humidity in %")
	failEnv    = flag.Bool("sim-fail-env", false, "Simulate a missing environment sensor")
	failIMU    = flag.Bool("sim-fail-imu", false, "Simulate a missing IMU")
)

// stdioPort joins stdin and stdout into the unit's transport.
type stdioPort struct {
	io.Reader
	io.Writer
}

func openTransport() (io.ReadWriter, error) {
	if *portPath == "" {
		return stdioPort{os.Stdin, os.Stdout}, nil
	}
	return serial.Open(*portPath, &serial.Mode{BaudRate: *baud, DataBits: 8})
}

func main() {
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	transport, err := openTransport()
	if err != nil {
		log.Fatalf("failed to open transport: %v", err)
	}

	sensors := sensor.NewSim()
	sensors.SetEnvironment(sensor.Environment{TempC: *tempC, HumidityRH: *humidityRH})
	if *rateZDeg != 0 {
		sensors.SetSteadyRate(sensor.AngularRate{Z: *rateZDeg})
	}
	if *failEnv {
		sensors.FailEnv()
	}
	if *failIMU {
		sensors.FailIMU()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := unit.New(cfg, timeutil.NewRealClock(), sensors, indicator.Log{}, transport)
	if err := u.Run(ctx); err != nil {
		// Boot failures have already been reported on the wire; the exit
		// code tells the supervisor not to treat this as a clean stop.
		log.Fatalf("unit stopped: %v", err)
	}
}
