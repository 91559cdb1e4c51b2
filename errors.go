package tarantool

import (
	"errors"
	"fmt"
)

// fatalConnectionError is implemented by errors that leave the
// connection's protocol state undefined, so the connection pipeline
// must close the socket rather than keep serving requests on it.
type fatalConnectionError interface {
	error
	Fatal() bool
}

// isFatal reports whether err requires tearing down the connection.
func isFatal(err error) bool {
	if err == nil {
		return false
	}
	var f fatalConnectionError
	if errors.As(err, &f) {
		return f.Fatal()
	}
	return false
}

// ConnectFailure means the transport could not reach the server.
type ConnectFailure struct {
	Addr string
	Err  error
}

func (e *ConnectFailure) Error() string {
	return fmt.Sprintf("tarantool: connect to %s failed: %v", e.Addr, e.Err)
}
func (e *ConnectFailure) Unwrap() error { return e.Err }
func (e *ConnectFailure) Fatal() bool   { return true }

// AuthFailure means the server rejected the supplied credentials.
type AuthFailure struct {
	Username string
	Err      error
}

func (e *AuthFailure) Error() string {
	return fmt.Sprintf("tarantool: authentication failed for user %q: %v", e.Username, e.Err)
}
func (e *AuthFailure) Unwrap() error { return e.Err }
func (e *AuthFailure) Fatal() bool   { return true }

// ConfigurationError means the supplied ClientConfig is invalid.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return "tarantool: invalid configuration: " + e.Message }

// NotConnected means an operation was attempted before the connection
// reached Ready, or after it left Ready for good.
type NotConnected struct {
	State connState
}

func (e *NotConnected) Error() string {
	return fmt.Sprintf("tarantool: not connected (state=%s)", e.State)
}

// SpaceNotFound means the metadata cache has no space by that name or id.
type SpaceNotFound struct {
	Space interface{} // string name or uint32/int id
}

func (e *SpaceNotFound) Error() string {
	return fmt.Sprintf("tarantool: space not found: %v", e.Space)
}

// IndexNotFound means the metadata cache has no such index on the space.
type IndexNotFound struct {
	SpaceID uint32
	Index   interface{} // string name or uint32 id
}

func (e *IndexNotFound) Error() string {
	return fmt.Sprintf("tarantool: index not found: space=%d index=%v", e.SpaceID, e.Index)
}

// ServerError wraps an error response returned by the server itself.
type ServerError struct {
	Code    uint64
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("tarantool: server error %#x: %s", e.Code, e.Message)
}

// Timeout means the request's deadline elapsed before a response
// arrived.
type Timeout struct {
	Sync uint64
}

func (e *Timeout) Error() string { return fmt.Sprintf("tarantool: request %d timed out", e.Sync) }

// Cancelled means the caller cancelled a pending completion before the
// server's response (if any) arrived. The in-flight request is not
// aborted on the wire; a late response, if one arrives, is dropped.
type Cancelled struct {
	Sync uint64
}

func (e *Cancelled) Error() string { return fmt.Sprintf("tarantool: request %d cancelled", e.Sync) }

// ProtocolError means the connection received malformed framing or an
// unexpected header and cannot be trusted to continue.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tarantool: protocol error: %s: %v", e.Message, e.Err)
	}
	return "tarantool: protocol error: " + e.Message
}
func (e *ProtocolError) Unwrap() error { return e.Err }
func (e *ProtocolError) Fatal() bool   { return true }

// ConnectionClosed means the peer or the local side closed the
// connection while a completion was still pending.
type ConnectionClosed struct {
	Err error
}

func (e *ConnectionClosed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tarantool: connection closed: %v", e.Err)
	}
	return "tarantool: connection closed"
}
func (e *ConnectionClosed) Unwrap() error { return e.Err }

// DuplicateSync means register was called twice for the same sync value
// without the first registration being resolved - this should be
// unreachable given the registry's own counter, and indicates a bug.
type DuplicateSync struct {
	Sync uint64
}

func (e *DuplicateSync) Error() string {
	return fmt.Sprintf("tarantool: duplicate sync %d", e.Sync)
}

// NoSuitableAuthenticator means no registered Authenticator both matches
// the configured mechanism and accepts the supplied credentials.
type NoSuitableAuthenticator struct {
	Mechanism string
}

func (e *NoSuitableAuthenticator) Error() string {
	return "tarantool: no suitable authenticator for mechanism " + e.Mechanism
}

// ErrNotImplemented is returned by Call/Eval: the source driver this
// client is modeled on has not implemented stored-procedure invocation
// either, and it stays out of scope for the core here (see Non-goals).
var ErrNotImplemented = errors.New("tarantool: not implemented")
