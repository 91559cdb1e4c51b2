package tarantool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarantool-go/tarantool/wire"
)

func zeroSalt() []byte { return make([]byte, 20) }

// TestDialAuthenticatesAndReachesReady exercises scenario S1: default
// connect against a stub that accepts any chap-sha1 response.
func TestDialAuthenticatesAndReachesReady(t *testing.T) {
	host, port := startStubServer(t, zeroSalt(), okHandler(func(header, body map[int]interface{}) map[int]interface{} {
		return map[int]interface{}{}
	}))

	cfg := ClientConfig{Host: host, Port: port, Credentials: Credentials{Username: "admin", Password: "password"}}.withDefaults()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	conn, err := dial(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, stateReady, conn.Status())
	assert.Contains(t, conn.Version(), "Tarantool")
}

// TestConnectionRequestTimeout exercises scenario S4: a stub that never
// responds must produce a Timeout and leave the registry empty.
func TestConnectionRequestTimeout(t *testing.T) {
	host, port := startStubServer(t, zeroSalt(), func(header, body map[int]interface{}) (map[int]interface{}, map[int]interface{}) {
		if code, _ := toUint(header[wire.KeyCode]); code == uint64(wire.RequestCodeAuth) {
			sync, _ := toUint(header[wire.KeySync])
			return map[int]interface{}{wire.KeyCode: uint64(0), wire.KeySync: sync}, map[int]interface{}{}
		}
		return nil, nil // never answer non-auth requests
	})

	cfg := ClientConfig{
		Host: host, Port: port,
		Credentials:    Credentials{Username: "admin", Password: "password"},
		RequestTimeout: 150 * time.Millisecond,
	}.withDefaults()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, err := dial(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	start := time.Now()
	_, err = conn.send(context.Background(), wire.RequestCodeSelect, map[int]interface{}{})
	elapsed := time.Since(start)

	require.Error(t, err)
	var timeout *Timeout
	require.ErrorAs(t, err, &timeout)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 0, conn.registry.size())
}

// TestConnectionConcurrentMultiplex exercises scenario S5: many
// concurrent requests against a stub that echoes each request's sync
// must all resolve without error, each with a non-zero echoed sync.
func TestConnectionConcurrentMultiplex(t *testing.T) {
	host, port := startStubServer(t, zeroSalt(), okHandler(func(header, body map[int]interface{}) map[int]interface{} {
		sync, _ := toUint(header[wire.KeySync])
		return map[int]interface{}{wire.KeyData: []interface{}{[]interface{}{sync}}}
	}))

	cfg := ClientConfig{Host: host, Port: port, Credentials: Credentials{Username: "admin", Password: "password"}}.withDefaults()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, err := dial(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	const n = 100
	var wg sync.WaitGroup
	errs := make([]error, n)
	results := make([]map[int]interface{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = conn.send(context.Background(), wire.RequestCodeSelect, map[int]interface{}{})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		data := results[i][wire.KeyData].([]interface{})
		tuple := data[0].([]interface{})
		assert.NotZero(t, tuple[0])
	}
}
