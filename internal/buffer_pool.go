// Package internal holds small helpers shared across the client and wire
// packages that aren't part of the public API.
package internal

import (
	"bytes"
	"sync"
)

// BufferPool is a pool of reusable byte buffers, sized for typical frame
// encode scratch space.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a pool whose buffers start with the given
// capacity.
func NewBufferPool(initialSize int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, initialSize))
			},
		},
	}
}

// Get returns an empty buffer from the pool.
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put resets buf and returns it to the pool.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	p.pool.Put(buf)
}
