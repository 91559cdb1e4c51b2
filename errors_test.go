package tarantool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarantool-go/tarantool/wire"
)

func TestServerErrorResponsePropagates(t *testing.T) {
	host, port := startStubServer(t, zeroSalt(), func(header, body map[int]interface{}) (map[int]interface{}, map[int]interface{}) {
		sync, _ := toUint(header[wire.KeySync])
		code, _ := toUint(header[wire.KeyCode])
		if code == uint64(wire.RequestCodeAuth) {
			return map[int]interface{}{wire.KeyCode: uint64(0), wire.KeySync: sync}, map[int]interface{}{}
		}
		return map[int]interface{}{wire.KeyCode: uint64(0x8002), wire.KeySync: sync},
			map[int]interface{}{wire.KeyError: "no such space"}
	})

	cfg := ClientConfig{Host: host, Port: port, Credentials: Credentials{Username: "admin", Password: "password"}}.withDefaults()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, err := dial(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.send(context.Background(), wire.RequestCodeSelect, map[int]interface{}{})
	require.Error(t, err)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, uint64(0x8002), serverErr.Code)
	assert.Equal(t, "no such space", serverErr.Message)
}

func TestIsFatalDistinguishesErrorKinds(t *testing.T) {
	assert.True(t, isFatal(&ConnectFailure{Addr: "x", Err: assertErr()}))
	assert.True(t, isFatal(&ProtocolError{Message: "bad frame"}))
	assert.False(t, isFatal(&Timeout{Sync: 1}))
	assert.False(t, isFatal(nil))
}

func assertErr() error { return context.DeadlineExceeded }
