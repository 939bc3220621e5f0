// Package protocol implements the unit's newline command grammar: byte-wise
// line assembly into a bounded buffer, command dispatch, and the single
// ACK/ERR reply each command earns.
//
// The grammar is deliberately tiny. Three verbs, flat fields:
//
//	LED=ON | LED=OFF
//	RGB=r,g,b      integers, clamped to [0,255]
//	GOTO=x,y,z     floats, signed and decimal forms accepted
//
// Lines end with \n or \r; a terminator on an empty buffer is a no-op so
// CRLF hosts cost nothing. Anything else is answered with an ERR line that
// echoes the offending input.
package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/position.report/internal/indicator"
	"github.com/banshee-data/position.report/internal/nav"
)

// BufferCap is the command buffer capacity in bytes. A line that would
// exceed it is discarded with ErrCmdTooLong rather than dispatched.
const BufferCap = 96

// Reply lines. Every dispatched command yields exactly one reply; errors
// that have an offending line to show append ",VAL=<line>".
const (
	AckLEDOn          = "ACK=LED_ON"
	AckLEDOff         = "ACK=LED_OFF"
	AckTargetReached  = "ACK=TARGET_REACHED"
	AckTargetComplete = "ACK=TARGET_COMPLETE"

	ErrCmdTooLong = "ERR=CMD_TOO_LONG"
	ErrBadRGB     = "ERR=BAD_RGB"
	ErrBadGoto    = "ERR=BAD_GOTO"
	ErrUnknownCmd = "ERR=UNKNOWN_CMD"
)

// Targeter receives navigation targets parsed from GOTO commands.
type Targeter interface {
	SetTarget(t nav.Vec3)
}

// Handler assembles and dispatches command lines. It is not safe for
// concurrent use; the control loop feeds it bytes one at a time.
type Handler struct {
	ind indicator.Indicator
	nav Targeter
	buf []byte
}

// NewHandler returns a Handler with an empty buffer.
func NewHandler(ind indicator.Indicator, nav Targeter) *Handler {
	return &Handler{
		ind: ind,
		nav: nav,
		buf: make([]byte, 0, BufferCap),
	}
}

// Feed consumes one transport byte. When the byte completes a command, or
// overflows the buffer, Feed returns the reply line to send and true.
func (h *Handler) Feed(b byte) (reply string, ok bool) {
	if b == '\n' || b == '\r' {
		if len(h.buf) == 0 {
			return "", false
		}
		line := strings.TrimSpace(string(h.buf))
		h.buf = h.buf[:0]
		if line == "" {
			return "", false
		}
		return h.dispatch(line), true
	}

	if len(h.buf) == BufferCap {
		// The overflowing byte is consumed along with the discarded
		// buffer; the partial line is never dispatched.
		h.buf = h.buf[:0]
		return ErrCmdTooLong, true
	}
	h.buf = append(h.buf, b)
	return "", false
}

// Pending returns the number of buffered bytes awaiting a terminator.
func (h *Handler) Pending() int {
	return len(h.buf)
}

func (h *Handler) dispatch(line string) string {
	switch {
	case line == "LED=ON":
		h.ind.SetLED(true)
		return AckLEDOn
	case line == "LED=OFF":
		h.ind.SetLED(false)
		return AckLEDOff
	case strings.HasPrefix(line, "RGB="):
		return h.handleRGB(line)
	case strings.HasPrefix(line, "GOTO="):
		return h.handleGoto(line)
	}
	return errWithVal(ErrUnknownCmd, line)
}

func (h *Handler) handleRGB(line string) string {
	fields := strings.Split(line[len("RGB="):], ",")
	if len(fields) != 3 {
		return errWithVal(ErrBadRGB, line)
	}

	var vals [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return errWithVal(ErrBadRGB, line)
		}
		vals[i] = v
	}

	r := clampChannel(vals[0])
	g := clampChannel(vals[1])
	b := clampChannel(vals[2])
	h.ind.SetRGB(uint8(r), uint8(g), uint8(b))

	// The reply echoes the clamped values, not the request's.
	return fmt.Sprintf("ACK=RGB,%d,%d,%d", r, g, b)
}

func (h *Handler) handleGoto(line string) string {
	coords := line[len("GOTO="):]

	// Split at the first and last comma. Exactly two commas with three
	// non-empty numeric fields between them, or the command is rejected.
	c1 := strings.Index(coords, ",")
	c2 := strings.LastIndex(coords, ",")
	if c1 <= 0 || c2 <= c1 {
		return errWithVal(ErrBadGoto, line)
	}

	x, okX := parseCoord(coords[:c1])
	y, okY := parseCoord(coords[c1+1 : c2])
	z, okZ := parseCoord(coords[c2+1:])
	if !okX || !okY || !okZ {
		return errWithVal(ErrBadGoto, line)
	}

	h.nav.SetTarget(nav.Vec3{X: x, Y: y, Z: z})
	return fmt.Sprintf("ACK=TARGET_SET,%s,%s,%s", fmtCoord(x), fmtCoord(y), fmtCoord(z))
}

func parseCoord(field string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func errWithVal(code, line string) string {
	return code + ",VAL=" + line
}
