// Package db stores everything the station hears from, and says to, the
// navigation unit: telemetry rows, device event lines, and the commands
// the station sent. Backed by SQLite via modernc.org/sqlite; the schema is
// managed by the embedded migrations.
package db

import (
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/position.report/internal/nav"
	"github.com/banshee-data/position.report/internal/telemetry"
)

type DB struct {
	*sql.DB
}

// OpenDB opens the database without touching the schema. Used by the
// migrate CLI, which manages the schema itself.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// The station writes from the line handler while the API reads;
	// WAL keeps readers off the writer's back.
	if _, err := sqlDB.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &DB{sqlDB}, nil
}

// NewDB opens the database and brings the schema up to date by applying
// the embedded migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(migrationsFS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}

// TelemetryRow is one stored telemetry record. ReceivedAt is the station's
// wall-clock receive time; DeviceMs is the unit's own monotonic timestamp.
// DistanceToTarget is nil for records emitted while the unit was not
// navigating.
type TelemetryRow struct {
	ID               int64     `json:"id"`
	ReceivedAt       time.Time `json:"received_at"`
	DeviceMs         int64     `json:"device_ms"`
	TempC            float64   `json:"temp_c"`
	HumidityRH       float64   `json:"humidity_rh"`
	Position         nav.Vec3  `json:"position"`
	DistanceToTarget *float64  `json:"distance_to_target,omitempty"`
}

// RecordTelemetry stores one parsed telemetry report.
func (db *DB) RecordTelemetry(rec telemetry.Report, receivedAt time.Time) error {
	distance := sql.NullFloat64{}
	if rec.DistanceToTarget != nil {
		distance = sql.NullFloat64{Float64: *rec.DistanceToTarget, Valid: true}
	}

	_, err := db.Exec(
		`INSERT INTO telemetry (
			received_at, device_ms, temp_c, humidity_rh, x, y, z, distance_to_target
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		receivedAt, rec.Timestamp, rec.TempC, rec.HumidityRH,
		rec.Position.X, rec.Position.Y, rec.Position.Z, distance,
	)
	if err != nil {
		return fmt.Errorf("failed to insert telemetry: %w", err)
	}
	return nil
}

func scanTelemetryRow(scan func(...any) error) (TelemetryRow, error) {
	var row TelemetryRow
	var distance sql.NullFloat64
	err := scan(
		&row.ID, &row.ReceivedAt, &row.DeviceMs, &row.TempC, &row.HumidityRH,
		&row.Position.X, &row.Position.Y, &row.Position.Z, &distance,
	)
	if err != nil {
		return TelemetryRow{}, err
	}
	if distance.Valid {
		row.DistanceToTarget = &distance.Float64
	}
	return row, nil
}

const telemetryColumns = `id, received_at, device_ms, temp_c, humidity_rh, x, y, z, distance_to_target`

// LatestTelemetry returns the most recently received telemetry row, or nil
// if nothing has been recorded yet.
func (db *DB) LatestTelemetry() (*TelemetryRow, error) {
	r := db.QueryRow(`SELECT ` + telemetryColumns + ` FROM telemetry ORDER BY id DESC LIMIT 1`)
	row, err := scanTelemetryRow(r.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// TelemetryHistory returns telemetry received since the given time, oldest
// first, capped at limit rows. A non-positive limit applies a generous cap
// rather than returning the whole table.
func (db *DB) TelemetryHistory(since time.Time, limit int) ([]TelemetryRow, error) {
	if limit <= 0 {
		limit = 100000
	}
	rows, err := db.Query(
		`SELECT `+telemetryColumns+` FROM telemetry
		 WHERE received_at >= ? ORDER BY id ASC LIMIT ?`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []TelemetryRow
	for rows.Next() {
		row, err := scanTelemetryRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		history = append(history, row)
	}
	return history, rows.Err()
}

// DeviceEvent is one non-telemetry line from the unit. Kind is the line
// type token (ack, err, info); Reply and Detail are the split parts of a
// protocol reply ("TARGET_SET" and "2,0,0"), empty for info lines. Raw is
// the line as received.
type DeviceEvent struct {
	ID         int64     `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Kind       string    `json:"kind"`
	Reply      string    `json:"reply,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Raw        string    `json:"raw"`
}

// RecordDeviceEvent stores one non-telemetry line.
func (db *DB) RecordDeviceEvent(kind, reply, detail, raw string, receivedAt time.Time) error {
	_, err := db.Exec(
		`INSERT INTO device_events (received_at, kind, reply, detail, raw) VALUES (?, ?, ?, ?, ?)`,
		receivedAt, kind, reply, detail, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to insert device event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest device events, newest first.
func (db *DB) RecentEvents(limit int) ([]DeviceEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, received_at, kind, reply, detail, raw FROM device_events
		 ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []DeviceEvent
	for rows.Next() {
		var e DeviceEvent
		if err := rows.Scan(&e.ID, &e.ReceivedAt, &e.Kind, &e.Reply, &e.Detail, &e.Raw); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CommandRecord is one command the station sent to the unit.
type CommandRecord struct {
	ID      string    `json:"id"`
	Command string    `json:"command"`
	Source  string    `json:"source"`
	SentAt  time.Time `json:"sent_at"`
}

// RecordCommand stores a command the station is about to send and returns
// its id so callers can hand it back to the requester.
func (db *DB) RecordCommand(command, source string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO commands (id, command, source, sent_at) VALUES (?, ?, ?, ?)`,
		id, command, source, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert command: %w", err)
	}
	return id, nil
}

// RecentCommands returns the newest recorded commands, newest first.
func (db *DB) RecentCommands(limit int) ([]CommandRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, command, source, sent_at FROM commands ORDER BY sent_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []CommandRecord
	for rows.Next() {
		var c CommandRecord
		if err := rows.Scan(&c.ID, &c.Command, &c.Source, &c.SentAt); err != nil {
			return nil, err
		}
		commands = append(commands, c)
	}
	return commands, rows.Err()
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://station.db", db.DB, &tailsql.DBOptions{
		Label: "Station DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		// Send the backup file to the client
		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}

		// close the backup file after sending it
		// and remove it from the filesystem
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()

		// Copy the backup file content to the gzip writer
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
