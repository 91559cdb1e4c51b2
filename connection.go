package tarantool

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tarantool-go/tarantool/internal/coarsetime"
	"github.com/tarantool-go/tarantool/wire"
)

// connState is one node of the connection's lifecycle state machine.
type connState int32

const (
	stateDisconnected connState = iota
	stateConnecting
	stateGreeted
	stateAuthenticating
	stateReady
	stateClosing
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateConnecting:
		return "connecting"
	case stateGreeted:
		return "greeted"
	case stateAuthenticating:
		return "authenticating"
	case stateReady:
		return "ready"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// connection owns a single TCP socket to the server and multiplexes an
// arbitrary number of concurrent requests over it using sync-ids. One
// reader goroutine demultiplexes inbound frames by header sync and
// routes each to the requestRegistry entry waiting for it; writers
// serialize onto the socket under wMu so a request's header+body bytes
// are never interleaved with another's.
type connection struct {
	cfg ClientConfig

	conn   net.Conn
	reader *bufio.Reader

	wMu sync.Mutex

	registry *requestRegistry
	breaker  *gobreaker.CircuitBreaker[struct{}]

	mu         sync.Mutex
	state      connState
	version    string
	schemaID   uint64
	closeErr   error

	stopTicker chan struct{}
	readDone   chan struct{}

	logger *slog.Logger
}

// dial opens a TCP connection, performs the greeting/auth handshake, and
// returns a connection in the Ready state. On any failure the socket (if
// opened) is closed and a fatal error is returned.
func dial(ctx context.Context, cfg ClientConfig) (*connection, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	c := &connection{
		cfg:        cfg,
		registry:   newRequestRegistry(),
		logger:     cfg.Logger.With("component", "connection", "addr", addr),
		stopTicker: make(chan struct{}),
		readDone:   make(chan struct{}),
	}
	c.setState(stateConnecting)

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.setState(stateDisconnected)
		return nil, &ConnectFailure{Addr: addr, Err: err}
	}
	c.conn = netConn
	c.reader = bufio.NewReader(netConn)

	if cfg.Breaker != nil {
		c.breaker = gobreaker.NewCircuitBreaker[struct{}](*cfg.Breaker)
	}

	if err := c.handshake(ctx); err != nil {
		netConn.Close()
		c.setState(stateDisconnected)
		return nil, err
	}

	c.setState(stateReady)
	go c.readLoop()
	go c.registry.startTicker(50*time.Millisecond, c.stopTicker)

	c.logger.Info("connected", "version", c.version)
	return c, nil
}

// handshake reads the 128-byte greeting and, if credentials are set,
// performs the chap-sha1 exchange. Left in stateGreeted/stateAuthenticating
// only for the duration of this call; dial promotes to stateReady itself.
// The greeting is the first thing read off a freshly dialed socket, so
// it is guarded by ReadTimeout rather than ConnectTimeout: ConnectTimeout
// bounds the TCP handshake dial itself, ReadTimeout bounds how long the
// peer has to actually start talking the protocol afterward.
func (c *connection) handshake(ctx context.Context) error {
	readDeadline := time.Now().Add(c.cfg.ReadTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(readDeadline) {
		readDeadline = d
	}
	c.conn.SetReadDeadline(readDeadline)
	defer c.conn.SetReadDeadline(time.Time{})

	g, err := readGreeting(c.reader)
	if err != nil {
		return &ConnectFailure{Addr: c.conn.RemoteAddr().String(), Err: err}
	}
	c.version = g.Version
	c.setState(stateGreeted)

	if c.cfg.Credentials.Username == "" {
		return nil
	}

	c.setState(stateAuthenticating)
	authr, err := selectAuthenticator(MechanismChapSha1, c.cfg.Credentials)
	if err != nil {
		return err
	}
	scramble, err := authr.Scramble(g.Salt, c.cfg.Credentials)
	if err != nil {
		return &AuthFailure{Username: c.cfg.Credentials.Username, Err: err}
	}

	header := map[int]interface{}{
		wire.KeyCode: uint64(wire.RequestCodeAuth),
		wire.KeySync: uint64(1),
	}
	body := map[int]interface{}{
		wire.KeyUsername: c.cfg.Credentials.Username,
		wire.KeyTuple:    []interface{}{authr.Mechanism(), scramble},
	}
	frame, err := wire.Encode(header, body)
	if err != nil {
		return &AuthFailure{Username: c.cfg.Credentials.Username, Err: err}
	}
	if _, err := c.conn.Write(frame); err != nil {
		return &AuthFailure{Username: c.cfg.Credentials.Username, Err: err}
	}

	respHeader, respBody, err := wire.Decode(c.reader)
	if err != nil {
		return &AuthFailure{Username: c.cfg.Credentials.Username, Err: err}
	}
	code, _ := toUint(respHeader[wire.KeyCode])
	if wire.IsErrorCode(code) {
		msg, _ := respBody[wire.KeyError].(string)
		return &AuthFailure{Username: c.cfg.Credentials.Username, Err: &ServerError{Code: code, Message: msg}}
	}
	return nil
}

// readLoop is the connection's sole reader. It runs until Decode fails,
// at which point it tears the connection down and fails every pending
// call with the error that caused the read to fail.
//
// It deliberately sets no socket read deadline of its own: once past the
// greeting, the connection is multiplexing an arbitrary number of
// requests with independent deadlines, and a blanket deadline on the
// shared socket would fail every in-flight call the moment the
// connection happened to be idle for ReadTimeout between frames.
// Per-call timeouts are enforced instead by requestRegistry.tick, which
// fails only the calls whose own deadline has actually elapsed.
func (c *connection) readLoop() {
	defer close(c.readDone)
	for {
		header, body, err := wire.Decode(c.reader)
		if err != nil {
			c.teardown(&ConnectionClosed{Err: err})
			return
		}

		sync, _ := toUint(header[wire.KeySync])
		if schemaID, ok := toUint(header[wire.KeySchemaID]); ok {
			c.mu.Lock()
			c.schemaID = schemaID
			c.mu.Unlock()
		}

		code, _ := toUint(header[wire.KeyCode])
		if wire.IsErrorCode(code) {
			msg, _ := body[wire.KeyError].(string)
			c.registry.fail(sync, &ServerError{Code: code, Message: msg})
			continue
		}
		c.registry.complete(sync, body)
	}
}

// send dispatches one request and waits for its matching response, a
// local timeout, context cancellation, or connection teardown - whichever
// comes first. code is the protocol request code; body is the
// already-converted request body map.
func (c *connection) send(ctx context.Context, code uint64, body map[int]interface{}) (map[int]interface{}, error) {
	if c.Status() != stateReady {
		return nil, &NotConnected{State: c.Status()}
	}

	// wMu spans register, encode and write, so sync ids reach the wire in
	// the order they were registered.
	c.wMu.Lock()
	sync := c.registry.nextSyncID()
	deadline := coarsetime.Now().Add(c.cfg.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	call, err := c.registry.register(sync, deadline)
	if err != nil {
		c.wMu.Unlock()
		return nil, err
	}

	header := map[int]interface{}{
		wire.KeyCode: code,
		wire.KeySync: sync,
	}

	dispatch := func() (struct{}, error) {
		frame, err := wire.Encode(header, body)
		if err != nil {
			return struct{}{}, err
		}
		_, err = c.conn.Write(frame)
		return struct{}{}, err
	}

	var dispatchErr error
	if c.breaker != nil {
		_, dispatchErr = c.breaker.Execute(dispatch)
	} else {
		_, dispatchErr = dispatch()
	}
	c.wMu.Unlock()
	if dispatchErr != nil {
		c.registry.cancel(sync)
		c.teardown(&ConnectionClosed{Err: dispatchErr})
		return nil, dispatchErr
	}

	select {
	case res := <-call.result:
		return res.body, res.err
	case <-ctx.Done():
		c.registry.cancel(sync)
		return nil, &Cancelled{Sync: sync}
	}
}

// teardown closes the socket and fails every pending call exactly once.
// Safe to call multiple times and from multiple goroutines (read loop on
// decode error, Close on caller request).
func (c *connection) teardown(err error) {
	c.mu.Lock()
	if c.state == stateClosed || c.state == stateClosing {
		c.mu.Unlock()
		return
	}
	c.state = stateClosing
	c.closeErr = err
	c.mu.Unlock()

	close(c.stopTicker)
	c.conn.Close()
	c.registry.shutdown(err)

	c.mu.Lock()
	c.state = stateClosed
	c.mu.Unlock()

	c.logger.Info("connection closed", "reason", err, "fatal", isFatal(err))
}

// Close tears the connection down gracefully from the caller's side.
func (c *connection) Close() error {
	c.teardown(&ConnectionClosed{})
	<-c.readDone
	return nil
}

func (c *connection) setState(s connState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Status reports the connection's current lifecycle state.
func (c *connection) Status() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Version returns the server's greeting banner, available once the
// connection has reached at least stateGreeted.
func (c *connection) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// SchemaID returns the schema version last observed on any response
// header. It is recorded only; nothing triggers a metadata refresh from it.
func (c *connection) SchemaID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schemaID
}

// toUint normalizes the msgpack decoder's possible integer
// representations (int64, uint64) for a header field into a uint64.
func toUint(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case int:
		return uint64(n), true
	default:
		return 0, false
	}
}
