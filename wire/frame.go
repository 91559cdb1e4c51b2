package wire

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tarantool-go/tarantool/internal"
)

// ErrShortRead is returned by Decode when the stream was closed or
// errored before a full frame could be read. Decode blocks until a whole
// frame has arrived, so a frame split across inbound chunks is read
// completely; on ErrShortRead, however, the bytes of the partial frame
// have already been consumed from the reader and are not restored, so a
// further Decode on the same reader does not resume that frame.
var ErrShortRead = errors.New("wire: short read while framing")

var framePool = internal.NewBufferPool(256)

// Decode reads one length-prefixed frame from r: a MessagePack uint
// giving the combined size of header+body, followed by exactly that many
// bytes, which are then parsed as two consecutive MessagePack maps (the
// header, then the body taking whatever bytes remain).
func Decode(r *bufio.Reader) (header, body map[int]interface{}, err error) {
	dec := msgpack.NewDecoder(r)
	size, err := dec.DecodeUint64()
	if err != nil {
		return nil, nil, err
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrShortRead, err)
	}

	frameDec := msgpack.NewDecoder(bytes.NewReader(buf))
	if err := frameDec.Decode(&header); err != nil {
		return nil, nil, fmt.Errorf("wire: decoding header: %w", err)
	}
	if err := frameDec.Decode(&body); err != nil {
		return nil, nil, fmt.Errorf("wire: decoding body: %w", err)
	}
	return header, body, nil
}

// Encode serializes header and body and prepends the MessagePack uint
// size the server expects. It writes nothing itself: the whole frame is
// returned as one slice, or nothing is returned on error.
func Encode(header, body map[int]interface{}) ([]byte, error) {
	scratch := framePool.Get()
	defer framePool.Put(scratch)

	enc := msgpack.NewEncoder(scratch)
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("wire: encoding header: %w", err)
	}
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("wire: encoding body: %w", err)
	}

	out := make([]byte, 0, binaryUintSize(uint64(scratch.Len()))+scratch.Len())
	sizeBuf := bytes.NewBuffer(out)
	if err := msgpack.NewEncoder(sizeBuf).EncodeUint64(uint64(scratch.Len())); err != nil {
		return nil, fmt.Errorf("wire: encoding frame size: %w", err)
	}
	sizeBuf.Write(scratch.Bytes())
	return sizeBuf.Bytes(), nil
}

// binaryUintSize estimates the MessagePack-encoded width of n, used only
// to size the output buffer's initial capacity.
func binaryUintSize(n uint64) int {
	switch {
	case n <= 0x7f:
		return 1
	case n <= 0xff:
		return 2
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
