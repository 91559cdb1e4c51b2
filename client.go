package tarantool

import (
	"context"
	"sync"

	"github.com/tarantool-go/tarantool/wire"
)

// Client is a connection to a single server, exposing the typed space
// surface on top of the connection pipeline. A Client owns exactly one
// connection; it does not pool, retry against other servers, or route
// by key - see the package doc for the full list of what's out of
// scope.
type Client struct {
	cfg ClientConfig

	mu       sync.RWMutex
	conn     *connection
	metadata *metadataCache

	stats statsCollector
}

// NewClient validates cfg, applies defaults, and returns an
// unconnected Client. Call Connect before issuing any space operation.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg}
	c.metadata = newMetadataCache(c.dispatch)
	return c, nil
}

// Connect dials the server, completes the greeting/auth handshake, and
// leaves the client ready to accept space operations. Calling Connect
// on an already-connected client replaces the existing connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := dial(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// IsConnected reports whether the client's connection is in the Ready
// state and can accept requests.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	return conn != nil && conn.Status() == stateReady
}

// Version returns the server's greeting banner. Returns NotConnected if
// the client has not yet connected.
func (c *Client) Version() (string, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return "", &NotConnected{State: stateDisconnected}
	}
	return conn.Version(), nil
}

// dispatch sends one request through the active connection and
// translates its outcome into stats. It is the single choke point every
// space operation and the metadata cache funnel requests through.
func (c *Client) dispatch(ctx context.Context, code uint64, body map[int]interface{}) (map[int]interface{}, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil, &NotConnected{State: stateDisconnected}
	}

	c.stats.recordRequest()
	resp, err := conn.send(ctx, code, body)
	switch {
	case err == nil:
		c.stats.recordResponse()
	case isTimeout(err):
		c.stats.recordTimeout()
	case isCancelled(err):
		c.stats.recordCancelled()
	default:
		if _, ok := err.(*ServerError); ok {
			c.stats.recordError()
		}
	}
	return resp, err
}

func isTimeout(err error) bool {
	_, ok := err.(*Timeout)
	return ok
}

func isCancelled(err error) bool {
	_, ok := err.(*Cancelled)
	if ok {
		return true
	}
	return err == context.Canceled || err == context.DeadlineExceeded
}

// Space resolves name against the metadata cache, refreshing it once if
// the name isn't found, and returns a typed CRUD surface for it.
func (c *Client) Space(ctx context.Context, name string) (*Space, error) {
	if sm, ok := c.metadata.getSpaceByName(name); ok {
		return &Space{client: c, meta: sm}, nil
	}
	if err := c.metadata.Refresh(ctx); err != nil {
		return nil, err
	}
	sm, ok := c.metadata.getSpaceByName(name)
	if !ok {
		return nil, &SpaceNotFound{Space: name}
	}
	return &Space{client: c, meta: sm}, nil
}

// SpaceByID is the numeric-id counterpart of Space.
func (c *Client) SpaceByID(ctx context.Context, id uint32) (*Space, error) {
	if sm, ok := c.metadata.getSpaceByID(id); ok {
		return &Space{client: c, meta: sm}, nil
	}
	if err := c.metadata.Refresh(ctx); err != nil {
		return nil, err
	}
	sm, ok := c.metadata.getSpaceByID(id)
	if !ok {
		return nil, &SpaceNotFound{Space: id}
	}
	return &Space{client: c, meta: sm}, nil
}

// RefreshMetadata forces a full re-scan of _vspace/_vindex, publishing
// a fresh snapshot atomically. Safe to call concurrently with lookups
// and with in-flight space operations.
func (c *Client) RefreshMetadata(ctx context.Context) error {
	return c.metadata.Refresh(ctx)
}

// Call invokes a stored procedure. Not implemented: the driver this
// client is modeled on never implemented stored-procedure invocation
// either, and wiring it up (request code 0x0A, argument tuple encoding,
// multi-return decoding) is left as a future extension of the registry
// and connection pipeline built here.
func (c *Client) Call(ctx context.Context, function string, args []interface{}) ([]interface{}, error) {
	return nil, ErrNotImplemented
}

// Eval evaluates a Lua expression on the server. Not implemented, for
// the same reason as Call.
func (c *Client) Eval(ctx context.Context, expr string, args []interface{}) ([]interface{}, error) {
	return nil, ErrNotImplemented
}

// Close closes the socket, then drains the request registry, failing
// every pending completion with ConnectionClosed. Safe to call more than
// once.
func (c *Client) Close() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Stats returns a snapshot of the client's request counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// valueMapper returns the registry used to decode space-operation
// results into native Go values.
func (c *Client) valueMapper() *wire.Registry {
	return c.cfg.ValueMapper
}

// Config returns a copy of the client's (defaulted, validated)
// configuration.
func (c *Client) Config() ClientConfig {
	return c.cfg
}
