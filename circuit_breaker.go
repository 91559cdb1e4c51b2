package tarantool

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// NewBreakerSettings returns gobreaker settings tuned for the dispatch
// path of a single Tarantool connection: a handful of back-to-back write
// failures (broken pipe, reset) should stop further writes from being
// attempted against a socket the read loop hasn't finished tearing down
// yet, without tripping on an isolated blip.
func NewBreakerSettings(maxRequests uint32, interval, timeout time.Duration) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "tarantool-dispatch",
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
}
