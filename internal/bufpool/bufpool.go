// Package bufpool provides a reusable pool of byte buffers, amortizing
// allocations for request bodies that are built and discarded per flush.
package bufpool

import (
	"bytes"
	"sync"
)

type Pool struct {
	pool    sync.Pool
	maxKeep int
}

// New creates a pool whose buffers start at initialSize. Buffers that grew
// beyond maxKeep are dropped on Put instead of being retained.
func New(initialSize, maxKeep int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, initialSize))
			},
		},
		maxKeep: maxKeep,
	}
}

func (p *Pool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

func (p *Pool) Put(buf *bytes.Buffer) {
	if p.maxKeep > 0 && buf.Cap() > p.maxKeep {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}
