// Package monitoring carries the station's lightweight diagnostics: a
// swappable diagnostic logger for high-rate paths and monotonic counters
// for the line-handling pipeline.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Counter is a monotonically increasing event counter safe for concurrent
// use. The zero value is ready to use.
type Counter struct {
	n atomic.Int64
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	c.n.Add(1)
}

// Add adds delta to the counter.
func (c *Counter) Add(delta int64) {
	c.n.Add(delta)
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.n.Load()
}
