// Command station is the host-side ground station for a navigation unit.
// It owns the serial link, records telemetry and device events to SQLite,
// and serves the HTTP API and admin debugging routes.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/position.report/internal/api"
	"github.com/banshee-data/position.report/internal/db"
	"github.com/banshee-data/position.report/internal/serialmux"
	"github.com/banshee-data/position.report/internal/units"
	"github.com/banshee-data/position.report/internal/version"
)

var (
	devMode       = flag.Bool("dev", false, "Run in dev mode against a mock serial port")
	disableSerial = flag.Bool("disable-serial", false, "Run without a serial link (API over stored data only)")
	listen        = flag.String("listen", ":8080", "Listen address")
	port          = flag.String("port", "/dev/ttyUSB0", "Serial port the unit is attached to (ignored in dev mode)")
	baud          = flag.Int("baud", 115200, "Serial baud rate")
	dbFile        = flag.String("db", "station.db", "SQLite database path")
	lengthUnits   = flag.String("units", units.Meters, "Default length units for API responses (m or ft)")
	fixtures      = flag.String("fixtures", "fixtures.txt", "Telemetry fixture file replayed in dev mode")
)

// mockFixtureLine reads the first line of the fixtures file, which the mock
// serial port replays as if the unit were reporting.
func mockFixtureLine(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for i, b := range data {
		if b == '\n' {
			return data[:i+1], nil
		}
	}
	return append(data, '\n'), nil
}

func main() {
	// Optional .env for deployment settings; flags still win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}

	flag.Parse()

	// "station migrate up" and friends run against the database and exit.
	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbFile)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValidLength(*lengthUnits) {
		log.Fatalf("invalid -units %q: valid values are %s", *lengthUnits, units.GetValidLengthUnitsString())
	}

	log.Printf("station %s (%s) starting", version.Version, version.GitSHA)

	var mux serialmux.SerialMuxInterface
	switch {
	case *disableSerial:
		mux = serialmux.NewDisabledSerialMux()
		log.Print("serial link disabled")
	case *devMode:
		line, err := mockFixtureLine(*fixtures)
		if err != nil {
			log.Fatalf("failed to read fixtures file: %v", err)
		}
		mux = serialmux.NewMockSerialMux(line)
	default:
		var err error
		mux, err = serialmux.NewRealSerialMux(*port, serialmux.PortOptions{BaudRate: *baud})
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *port, err)
		}
	}
	defer mux.Close()

	if !*disableSerial {
		if err := mux.Initialize(); err != nil {
			log.Fatalf("failed to initialize unit: %v", err)
		}
		log.Print("initialized unit indicator state")
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	cache := serialmux.NewStatusCache()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to unit output and feed each line through the handler
	// pipeline: telemetry into the telemetry table, ACK/ERR/info lines into
	// device_events, the status cache refreshed as lines arrive.
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := mux.Subscribe()
		defer mux.Unsubscribe(id)
		for {
			select {
			case payload := <-c:
				if err := serialmux.HandleLine(database, cache, payload); err != nil {
					log.Printf("error handling line: %v", err)
				}
			case <-ctx.Done():
				log.Printf("subscribe routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		httpMux := api.NewServer(mux, database, cache, *lengthUnits).ServeMux()
		mux.AttachAdminRoutes(httpMux)
		database.AttachAdminRoutes(httpMux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(httpMux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
