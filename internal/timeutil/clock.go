// Package timeutil provides a testable abstraction over time operations.
//
// The navigation unit's semantics are defined over integer microsecond and
// millisecond readings from a monotonic source (integration deltas, report
// intervals, the reached-hold window), so the Clock interface exposes those
// readings directly rather than time.Time values.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// NowMicros returns microseconds elapsed on a monotonic source.
	// The epoch is arbitrary; only differences are meaningful.
	NowMicros() int64

	// NowMillis returns milliseconds elapsed on the same source.
	NowMillis() int64

	// NewTicker returns a new Ticker containing a channel that will
	// deliver ticks at intervals of d.
	NewTicker(d time.Duration) Ticker
}

// Ticker holds a channel that delivers "ticks" of a clock at intervals.
type Ticker interface {
	// C returns the channel on which the ticks are delivered.
	C() <-chan time.Time

	// Stop turns off a ticker.
	Stop()

	// Reset stops a ticker and resets its period to the specified duration.
	Reset(d time.Duration)
}

// RealClock implements Clock using the standard time package. Readings are
// measured from the moment the clock is created, so they ride the runtime's
// monotonic source and are immune to wall-clock steps.
type RealClock struct {
	base time.Time
}

// NewRealClock returns a RealClock anchored at the current instant.
func NewRealClock() *RealClock {
	return &RealClock{base: time.Now()}
}

// NowMicros returns microseconds since the clock was created.
func (c *RealClock) NowMicros() int64 {
	return time.Since(c.base).Microseconds()
}

// NowMillis returns milliseconds since the clock was created.
func (c *RealClock) NowMillis() int64 {
	return time.Since(c.base).Milliseconds()
}

// NewTicker returns a new Ticker.
func (c *RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.ticker.C }
func (t *realTicker) Stop()               { t.ticker.Stop() }
func (t *realTicker) Reset(d time.Duration) {
	t.ticker.Reset(d)
}

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu      sync.Mutex
	micros  int64
	tickers []*MockTicker
}

// NewMockClock creates a new MockClock reading zero microseconds.
func NewMockClock() *MockClock {
	return &MockClock{}
}

// NowMicros returns the mocked microsecond reading.
func (c *MockClock) NowMicros() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.micros
}

// NowMillis returns the mocked millisecond reading.
func (c *MockClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.micros / 1000
}

// SetMicros sets the mock clock to a specific microsecond reading.
func (c *MockClock) SetMicros(us int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.micros = us
}

// Advance moves the mock clock forward by the given duration
// and fires any expired tickers.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.micros += d.Microseconds()
	now := c.micros
	tickers := c.tickers
	c.mu.Unlock()

	for _, t := range tickers {
		t.checkAndFire(now)
	}
}

// NewTicker creates a new MockTicker.
func (c *MockClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &MockTicker{
		ch:       make(chan time.Time, 1),
		interval: d.Microseconds(),
		nextTick: c.micros + d.Microseconds(),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// MockTicker is a manually controlled ticker for testing.
type MockTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval int64
	nextTick int64
	stopped  bool
}

// C returns the ticker channel.
func (t *MockTicker) C() <-chan time.Time {
	return t.ch
}

// Stop turns off the ticker.
func (t *MockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Reset stops a ticker and resets its period to the specified duration.
func (t *MockTicker) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = false
	t.interval = d.Microseconds()
}

// Trigger manually sends a tick.
func (t *MockTicker) Trigger() {
	select {
	case t.ch <- time.Time{}:
	default:
	}
}

func (t *MockTicker) checkAndFire(nowMicros int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	if nowMicros >= t.nextTick {
		select {
		case t.ch <- time.Unix(0, nowMicros*int64(time.Microsecond)):
		default:
		}
		t.nextTick = nowMicros + t.interval
	}
}
