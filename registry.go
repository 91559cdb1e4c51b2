package tarantool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarantool-go/tarantool/internal/coarsetime"
)

// callResult is delivered exactly once to the channel held by a
// pendingCall: either a decoded response body, or an error.
type callResult struct {
	body map[int]interface{}
	err  error
}

// pendingCall is the completion tracked by the registry for one
// in-flight request.
type pendingCall struct {
	sync     uint64
	deadline time.Time
	result   chan callResult
}

// requestRegistry maps in-flight request sync-ids to their pending
// completions. Every registered entry is resolved exactly once - by a
// matching response, by a timeout sweep, or by shutdown - and removed
// from the map at that point. Safe for concurrent use: completion
// typically happens on the connection's read-loop goroutine while
// registration happens on whichever goroutine issued the request.
type requestRegistry struct {
	mu          sync.Mutex
	pending     map[uint64]*pendingCall
	nextSync    atomic.Uint64
	closed      bool
	shutdownErr error
}

func newRequestRegistry() *requestRegistry {
	return &requestRegistry{
		pending: make(map[uint64]*pendingCall),
	}
}

// nextSyncID returns a fresh, connection-lifetime-unique sync value.
// Wraparound of the underlying uint64 counter is treated as unsigned
// modular arithmetic, per the protocol's tolerance for it; it is not
// expected to occur in practice.
func (r *requestRegistry) nextSyncID() uint64 {
	return r.nextSync.Add(1)
}

// register creates and tracks a new pending completion for sync,
// due by deadline. It fails with DuplicateSync if sync is already
// registered (which should be unreachable given nextSyncID), and with
// ConnectionClosed if shutdown has already been called.
func (r *requestRegistry) register(sync uint64, deadline time.Time) (*pendingCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, &ConnectionClosed{Err: r.shutdownErr}
	}
	if _, exists := r.pending[sync]; exists {
		return nil, &DuplicateSync{Sync: sync}
	}

	call := &pendingCall{sync: sync, deadline: deadline, result: make(chan callResult, 1)}
	r.pending[sync] = call
	return call, nil
}

// complete delivers a successful response body to the pending call
// registered under sync. It is a no-op if no such call exists - a late
// delivery after a timeout or cancellation is silently dropped.
func (r *requestRegistry) complete(sync uint64, body map[int]interface{}) {
	call := r.take(sync)
	if call == nil {
		return
	}
	call.result <- callResult{body: body}
}

// fail delivers err to the pending call registered under sync. Like
// complete, it is a no-op if the call is no longer tracked.
func (r *requestRegistry) fail(sync uint64, err error) {
	call := r.take(sync)
	if call == nil {
		return
	}
	call.result <- callResult{err: err}
}

// cancel removes the pending call registered under sync and delivers
// Cancelled to it. Any response that later arrives for sync finds no
// entry in the registry and is dropped by complete/fail.
func (r *requestRegistry) cancel(sync uint64) {
	call := r.take(sync)
	if call == nil {
		return
	}
	call.result <- callResult{err: &Cancelled{Sync: sync}}
}

// take removes and returns the pending call for sync, or nil if absent.
func (r *requestRegistry) take(sync uint64) *pendingCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.pending[sync]
	if !ok {
		return nil
	}
	delete(r.pending, sync)
	return call
}

// tick sweeps the registry for calls whose deadline has passed as of
// now, removing and failing each with Timeout. Callers use
// coarsetime.Now() to avoid a time.Now() syscall per pending call on
// every sweep.
func (r *requestRegistry) tick(now time.Time) {
	var expired []*pendingCall

	r.mu.Lock()
	for sync, call := range r.pending {
		if !call.deadline.After(now) {
			expired = append(expired, call)
			delete(r.pending, sync)
		}
	}
	r.mu.Unlock()

	for _, call := range expired {
		call.result <- callResult{err: &Timeout{Sync: call.sync}}
	}
}

// shutdown removes every pending call and delivers err to each, then
// refuses further registrations.
func (r *requestRegistry) shutdown(err error) {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[uint64]*pendingCall)
	r.closed = true
	r.shutdownErr = err
	r.mu.Unlock()

	for _, call := range pending {
		call.result <- callResult{err: err}
	}
}

// size reports the number of calls currently tracked, mostly useful for
// tests asserting the registry drains after a timeout or shutdown.
func (r *requestRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// startTicker runs tick on interval until stop is closed, using the
// coarse clock so a large number of in-flight requests doesn't turn
// every sweep into a syscall storm.
func (r *requestRegistry) startTicker(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			r.tick(coarsetime.Now())
		}
	}
}
