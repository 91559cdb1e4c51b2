package tarantool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterCompleteRoundTrip(t *testing.T) {
	r := newRequestRegistry()
	sync := r.nextSyncID()

	call, err := r.register(sync, time.Now().Add(time.Second))
	require.NoError(t, err)

	r.complete(sync, map[int]interface{}{1: "ok"})

	res := <-call.result
	require.NoError(t, res.err)
	assert.Equal(t, "ok", res.body[1])
	assert.Equal(t, 0, r.size())
}

func TestRegistryDuplicateSync(t *testing.T) {
	r := newRequestRegistry()
	_, err := r.register(1, time.Now().Add(time.Second))
	require.NoError(t, err)

	_, err = r.register(1, time.Now().Add(time.Second))
	require.Error(t, err)
	var dup *DuplicateSync
	require.ErrorAs(t, err, &dup)
}

func TestRegistryCompleteAfterTimeoutIsNoop(t *testing.T) {
	r := newRequestRegistry()
	sync := r.nextSyncID()
	_, err := r.register(sync, time.Now().Add(-time.Millisecond))
	require.NoError(t, err)

	r.tick(time.Now())
	assert.Equal(t, 0, r.size())

	// Late delivery after the sweep must not panic or block.
	r.complete(sync, map[int]interface{}{})
}

func TestRegistryTickDeliversTimeout(t *testing.T) {
	r := newRequestRegistry()
	sync := r.nextSyncID()
	call, err := r.register(sync, time.Now().Add(-time.Millisecond))
	require.NoError(t, err)

	r.tick(time.Now())

	res := <-call.result
	require.Error(t, res.err)
	var timeout *Timeout
	require.ErrorAs(t, res.err, &timeout)
}

func TestRegistryShutdownFailsAllPending(t *testing.T) {
	r := newRequestRegistry()
	var calls []*pendingCall
	for i := 0; i < 5; i++ {
		sync := r.nextSyncID()
		call, err := r.register(sync, time.Now().Add(time.Minute))
		require.NoError(t, err)
		calls = append(calls, call)
	}

	shutdownErr := &ConnectionClosed{}
	r.shutdown(shutdownErr)

	for _, call := range calls {
		res := <-call.result
		assert.Equal(t, shutdownErr, res.err)
	}

	_, err := r.register(r.nextSyncID(), time.Now().Add(time.Second))
	require.Error(t, err)
}

func TestRegistryConcurrentRegistrationsUniqueSync(t *testing.T) {
	r := newRequestRegistry()
	const n = 200

	seen := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- r.nextSyncID()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]bool)
	for s := range seen {
		require.False(t, unique[s], "duplicate sync id %d", s)
		unique[s] = true
	}
	assert.Len(t, unique, n)
}

func TestRegistryCancelDropsLateResponse(t *testing.T) {
	r := newRequestRegistry()
	sync := r.nextSyncID()
	call, err := r.register(sync, time.Now().Add(time.Minute))
	require.NoError(t, err)

	r.cancel(sync)
	res := <-call.result
	var cancelled *Cancelled
	require.ErrorAs(t, res.err, &cancelled)

	// A response arriving after cancel finds nothing registered.
	r.complete(sync, map[int]interface{}{})
	assert.Equal(t, 0, r.size())
}
