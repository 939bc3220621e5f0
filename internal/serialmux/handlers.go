package serialmux

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/position.report/internal/db"
	"github.com/banshee-data/position.report/internal/monitoring"
	"github.com/banshee-data/position.report/internal/telemetry"
)

// HandleTelemetry parses a JSON telemetry line, stores it, and refreshes
// the status cache. The raw line is preserved in the error so a malformed
// record can be found in the logs.
func HandleTelemetry(d *db.DB, cache *StatusCache, payload string) error {
	var rec telemetry.Report
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return fmt.Errorf("failed to unmarshal telemetry line %q: %v", payload, err)
	}

	now := time.Now()
	if err := d.RecordTelemetry(rec, now); err != nil {
		return fmt.Errorf("failed to record telemetry: %v", err)
	}
	if cache != nil {
		cache.SetReport(rec, now)
	}
	return nil
}

// HandleReply stores an ACK or ERR line as a device event. kind is the
// line type token from ClassifyLine.
func HandleReply(d *db.DB, cache *StatusCache, kind, payload string) error {
	monitoring.Logf("unit %s: %s", kind, payload)

	reply, detail := SplitReply(payload)
	now := time.Now()
	if cache != nil {
		cache.SetEvent(payload, now)
	}
	return d.RecordDeviceEvent(kind, reply, detail, payload, now)
}

// HandleInfo stores a free-text line (READY, the command banner, boot
// errors printed before the protocol is up) as an info event.
func HandleInfo(d *db.DB, cache *StatusCache, payload string) error {
	monitoring.Logf("unit info: %s", payload)

	now := time.Now()
	if cache != nil {
		cache.SetEvent(payload, now)
	}
	return d.RecordDeviceEvent(LineTypeInfo, "", "", payload, now)
}

// HandleLine classifies one line from the unit, counts it, and dispatches
// it to the matching handler.
func HandleLine(d *db.DB, cache *StatusCache, payload string) error {
	kind := ClassifyLine(payload)
	if cache != nil {
		cache.CountLine(kind)
	}
	switch kind {
	case LineTypeTelemetry:
		if err := HandleTelemetry(d, cache, payload); err != nil {
			return fmt.Errorf("failed to handle telemetry line: %v", err)
		}
	case LineTypeAck, LineTypeErr:
		if err := HandleReply(d, cache, kind, payload); err != nil {
			return fmt.Errorf("failed to handle %s line: %v", kind, err)
		}
	default:
		if err := HandleInfo(d, cache, payload); err != nil {
			return fmt.Errorf("failed to handle info line: %v", err)
		}
	}
	return nil
}
