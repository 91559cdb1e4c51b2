package tarantool

import "sync/atomic"

// ClientStats contains counters about requests issued by a Client.
// All fields are safe for concurrent access.
//
// Struct is sized to fit within a single cache line (64 bytes) on a
// typical 64-bit platform. Fields are ordered largest to smallest for
// favorable memory layout.
type ClientStats struct {
	Requests  uint64 // Total requests dispatched
	Responses uint64 // Total successful responses
	Errors    uint64 // Total server-side error responses
	Timeouts  uint64 // Total requests that timed out
	Cancelled uint64 // Total requests cancelled by the caller
	_         [3]uint64
}

// statsCollector provides internal methods for updating ClientStats.
// Not exported - only the client that owns the stats updates them.
type statsCollector struct {
	stats ClientStats
}

func (c *statsCollector) recordRequest() {
	atomic.AddUint64(&c.stats.Requests, 1)
}

func (c *statsCollector) recordResponse() {
	atomic.AddUint64(&c.stats.Responses, 1)
}

func (c *statsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *statsCollector) recordTimeout() {
	atomic.AddUint64(&c.stats.Timeouts, 1)
}

func (c *statsCollector) recordCancelled() {
	atomic.AddUint64(&c.stats.Cancelled, 1)
}

// snapshot returns a copy of the current counters.
func (c *statsCollector) snapshot() ClientStats {
	return ClientStats{
		Requests:  atomic.LoadUint64(&c.stats.Requests),
		Responses: atomic.LoadUint64(&c.stats.Responses),
		Errors:    atomic.LoadUint64(&c.stats.Errors),
		Timeouts:  atomic.LoadUint64(&c.stats.Timeouts),
		Cancelled: atomic.LoadUint64(&c.stats.Cancelled),
	}
}
