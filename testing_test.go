package tarantool

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/tarantool-go/tarantool/wire"
)

// stubHandler decides how the stub server responds to one request
// frame. Returning a nil header skips sending any response at all,
// which is how the timeout scenario is simulated.
type stubHandler func(header, body map[int]interface{}) (respHeader, respBody map[int]interface{})

// startStubServer starts a listener that sends a canned greeting to
// every connection, then answers every inbound frame through handler.
// Grounded on pior-memcache's testing_test.go createListener helper,
// generalized from raw line-based responses to this protocol's framed
// request/response pairs.
func startStubServer(t testing.TB, salt20 []byte, handler stubHandler) (host string, port int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start stub server: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go serveStubConn(conn, salt20, handler)
		}
	}()

	time.Sleep(10 * time.Millisecond)

	addr := listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func serveStubConn(conn net.Conn, salt20 []byte, handler stubHandler) {
	defer conn.Close()

	salt32 := make([]byte, 32)
	copy(salt32, salt20)
	greetingBuf := buildGreeting("Tarantool 2.11.0 (Binary)", salt32)
	if _, err := conn.Write(greetingBuf); err != nil {
		return
	}

	r := bufio.NewReader(conn)
	for {
		header, body, err := wire.Decode(r)
		if err != nil {
			return
		}

		respHeader, respBody := handler(header, body)
		if respHeader == nil {
			continue
		}
		frame, err := wire.Encode(respHeader, respBody)
		if err != nil {
			return
		}
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

// okHandler wraps a body-only responder: it always echoes sync and a
// success code, letting callers focus on the body shape.
func okHandler(f func(header, body map[int]interface{}) map[int]interface{}) stubHandler {
	return func(header, body map[int]interface{}) (map[int]interface{}, map[int]interface{}) {
		sync, _ := toUint(header[wire.KeySync])
		respHeader := map[int]interface{}{
			wire.KeyCode: uint64(0),
			wire.KeySync: sync,
		}
		return respHeader, f(header, body)
	}
}
