// Package wire implements the low-level wire protocol for the Tarantool
// binary RPC, independent of any connection lifecycle or retry policy.
//
// This package serves as a foundation for building a higher-level client
// with different properties (request multiplexing, metadata caching,
// typed space operations). It focuses on correctness of framing and
// value conversion, without imposing architectural decisions on callers.
//
// # Core types
//
//   - Decode/Encode: the decoded {header, body} pair, the unit exchanged
//     after the greeting handshake.
//   - Registry: a pluggable set of converters between MessagePack values
//     and native Go values, keyed by type.
//
// # Framing
//
//	header, body, err := wire.Decode(bufio.NewReader(conn))
//	buf, err := wire.Encode(header, body)
package wire
