// Package tarantool implements the connection and request lifecycle
// core of a client for a MessagePack-based database server speaking a
// Tarantool-style binary RPC protocol: greeting/chap-sha1 handshake,
// a length-prefixed frame codec, sync-id multiplexed request/response
// correlation over a single TCP connection, a metadata cache resolving
// space/index names to numeric identifiers, and a typed CRUD surface
// over spaces.
//
// Connection pooling, cluster-aware routing, and stored-procedure
// invocation (Call/Eval) are out of scope; see the package's design
// notes for why.
package tarantool
