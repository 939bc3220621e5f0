package indicator

import (
	"fmt"
	"sync"
)

// Recorder is an Indicator that records every call for inspection in tests.
type Recorder struct {
	mu    sync.Mutex
	led   bool
	r     uint8
	g     uint8
	b     uint8
	calls []string
}

var _ Indicator = (*Recorder)(nil)

// NewRecorder returns a Recorder with everything off.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (rec *Recorder) SetLED(on bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.led = on
	rec.calls = append(rec.calls, fmt.Sprintf("led=%v", on))
}

func (rec *Recorder) SetRGB(r, g, b uint8) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.r, rec.g, rec.b = r, g, b
	rec.calls = append(rec.calls, fmt.Sprintf("rgb=%d,%d,%d", r, g, b))
}

// LED returns the current LED state.
func (rec *Recorder) LED() bool {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.led
}

// RGB returns the current RGB color.
func (rec *Recorder) RGB() (r, g, b uint8) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.r, rec.g, rec.b
}

// Calls returns the recorded call sequence, oldest first.
func (rec *Recorder) Calls() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]string, len(rec.calls))
	copy(out, rec.calls)
	return out
}
