// Package api serves the station's HTTP surface: status, telemetry history
// and statistics, device events, and command passthrough to the unit.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/position.report/internal/db"
	"github.com/banshee-data/position.report/internal/serialmux"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	m     serialmux.SerialMuxInterface
	db    *db.DB
	cache *serialmux.StatusCache
	units string
}

// NewServer wires the API against the serial mux, the database, and the
// live status cache. units is the length unit used for positions and
// distances in responses ("m" or "ft").
func NewServer(m serialmux.SerialMuxInterface, db *db.DB, cache *serialmux.StatusCache, units string) *Server {
	return &Server{
		m:     m,
		db:    db,
		cache: cache,
		units: units,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/telemetry", s.listTelemetry)
	mux.HandleFunc("/api/telemetry/stats", s.showTelemetryStats)
	mux.HandleFunc("/api/events", s.listEvents)
	mux.HandleFunc("/api/commands", s.listCommands)
	mux.HandleFunc("/api/command", s.sendCommandHandler)
	mux.HandleFunc("/api/target", s.setTargetHandler)
	mux.HandleFunc("/api/indicator", s.setIndicatorHandler)
	mux.HandleFunc("/debug/charts/track", s.showTrackChart)
	return mux
}
