package tarantool

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const greetingSize = 128

// greeting is the fixed-size preamble the server sends immediately after
// TCP connect: a 64-byte version banner, followed by a 44-byte Base64
// encoding of a 32-byte salt (of which only the first 20 decoded bytes
// are ever used), followed by padding to 128 bytes total.
type greeting struct {
	Version string
	Salt    []byte // first 20 decoded bytes only
}

// readGreeting reads and parses exactly greetingSize bytes from r.
func readGreeting(r io.Reader) (greeting, error) {
	buf := make([]byte, greetingSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return greeting{}, fmt.Errorf("tarantool: reading greeting: %w", err)
	}
	return parseGreeting(buf)
}

// parseGreeting decodes a 128-byte greeting buffer. Per the protocol,
// never assume the 44 Base64 characters decode to exactly 32 bytes
// across server versions - only the first 20 decoded bytes are sliced
// out and used.
func parseGreeting(buf []byte) (greeting, error) {
	if len(buf) != greetingSize {
		return greeting{}, &ProtocolError{Message: fmt.Sprintf("greeting must be %d bytes, got %d", greetingSize, len(buf))}
	}

	version := strings.TrimRight(string(buf[:64]), "\x00 ")

	saltLine := bytes.TrimRight(buf[64:108], "\x00 ")
	salt, err := base64.StdEncoding.DecodeString(string(saltLine))
	if err != nil {
		return greeting{}, &ProtocolError{Message: "decoding greeting salt", Err: err}
	}
	if len(salt) < 20 {
		return greeting{}, &ProtocolError{Message: fmt.Sprintf("decoded salt too short: %d bytes", len(salt))}
	}

	return greeting{Version: version, Salt: salt[:20]}, nil
}
