package ilp

import (
	"context"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// SenderPool hands out senders to concurrent producers. A single sender is
// a single-writer object; the pool is the scaling unit: each producer
// acquires its own sender, appends and flushes, then releases it.
type SenderPool struct {
	pool             *puddle.Pool[*Sender]
	createdSenders   atomic.Int64
	destroyedSenders atomic.Int64
}

// NewSenderPool creates a pool of up to maxSize senders sharing one
// configuration. Senders are created lazily on first acquire.
func NewSenderPool(conf Config, maxSize int32) (*SenderPool, error) {
	p := &SenderPool{}

	poolConfig := &puddle.Config[*Sender]{
		Constructor: func(ctx context.Context) (*Sender, error) {
			s, err := newSender(ctx, conf)
			if err == nil {
				p.createdSenders.Add(1)
			}
			return s, err
		},
		Destructor: func(s *Sender) {
			p.destroyedSenders.Add(1)
			_ = s.Close(context.Background())
		},
		MaxSize: maxSize,
	}

	pool, err := puddle.NewPool(poolConfig)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// Acquire returns a sender for exclusive use. Blocks until one is available
// or the context is cancelled.
func (p *SenderPool) Acquire(ctx context.Context) (*PooledSender, error) {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &PooledSender{res: res}, nil
}

// Close destroys all senders. In-use senders are destroyed as they are
// released.
func (p *SenderPool) Close() {
	p.pool.Close()
}

// Stats returns a snapshot of pool statistics.
func (p *SenderPool) Stats() PoolStats {
	s := p.pool.Stat()

	return PoolStats{
		TotalSenders:     s.TotalResources(),
		IdleSenders:      s.IdleResources(),
		ActiveSenders:    s.AcquiredResources(),
		AcquireCount:     uint64(s.AcquireCount()),
		AcquireWaitCount: uint64(s.EmptyAcquireCount()),
		CreatedSenders:   uint64(p.createdSenders.Load()),
		DestroyedSenders: uint64(p.destroyedSenders.Load()),
		AcquireErrors:    uint64(s.CanceledAcquireCount()),
	}
}

// PooledSender is a sender checked out of a SenderPool.
type PooledSender struct {
	res *puddle.Resource[*Sender]
}

// Sender returns the underlying sender. Valid until Release.
func (ps *PooledSender) Sender() *Sender {
	return ps.res.Value()
}

// Release returns the sender to the pool. A sender left with a row in
// progress or already closed is destroyed instead of being reused.
func (ps *PooledSender) Release() {
	s := ps.res.Value()
	if s.closed || s.buf.RowInProgress() {
		ps.res.Destroy()
		return
	}
	ps.res.Release()
}
