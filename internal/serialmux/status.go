package serialmux

import (
	"sync"
	"time"

	"github.com/banshee-data/position.report/internal/monitoring"
	"github.com/banshee-data/position.report/internal/telemetry"
)

// StatusCache holds the most recent state seen on the serial link so the
// API can answer /api/status without a database round trip. It is written
// by the line handler goroutine and read by HTTP handlers.
type StatusCache struct {
	mu sync.Mutex

	report     telemetry.Report
	reportAt   time.Time
	haveReport bool

	lastEvent   string
	lastEventAt time.Time

	// Pipeline counters, bumped per handled line. Atomic, so they sit
	// outside mu.
	telemetryLines monitoring.Counter
	ackLines       monitoring.Counter
	errLines       monitoring.Counter
	infoLines      monitoring.Counter
}

// LineCounts is a snapshot of how many lines of each type the handler
// pipeline has processed since the station started.
type LineCounts struct {
	Telemetry int64 `json:"telemetry"`
	Ack       int64 `json:"ack"`
	Err       int64 `json:"err"`
	Info      int64 `json:"info"`
}

// NewStatusCache returns an empty cache.
func NewStatusCache() *StatusCache {
	return &StatusCache{}
}

// SetReport records the latest telemetry report and its receive time.
func (c *StatusCache) SetReport(rec telemetry.Report, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = rec
	c.reportAt = at
	c.haveReport = true
}

// SetEvent records the latest non-telemetry line from the unit.
func (c *StatusCache) SetEvent(line string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastEvent = line
	c.lastEventAt = at
}

// Report returns the latest telemetry report, if one has been seen.
func (c *StatusCache) Report() (rec telemetry.Report, at time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report, c.reportAt, c.haveReport
}

// LastEvent returns the latest non-telemetry line, if any.
func (c *StatusCache) LastEvent() (line string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEvent, c.lastEventAt
}

// CountLine bumps the pipeline counter for one line of the given type.
// kind is a line type token from ClassifyLine; unrecognised tokens count
// as info.
func (c *StatusCache) CountLine(kind string) {
	switch kind {
	case LineTypeTelemetry:
		c.telemetryLines.Inc()
	case LineTypeAck:
		c.ackLines.Inc()
	case LineTypeErr:
		c.errLines.Inc()
	default:
		c.infoLines.Inc()
	}
}

// LineCounts returns a snapshot of the pipeline counters.
func (c *StatusCache) LineCounts() LineCounts {
	return LineCounts{
		Telemetry: c.telemetryLines.Value(),
		Ack:       c.ackLines.Value(),
		Err:       c.errLines.Value(),
		Info:      c.infoLines.Value(),
	}
}
