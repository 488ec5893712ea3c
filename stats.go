package ilp

import "sync/atomic"

// SenderStats contains statistics about a sender's activity. All fields are
// safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: RowsCommitted, RowsSent, BytesSent, Flushes, FlushErrors, Retries
type SenderStats struct {
	RowsCommitted uint64 // rows committed into the buffer
	RowsSent      uint64 // rows confirmed flushed
	BytesSent     uint64 // payload bytes confirmed flushed
	Flushes       uint64 // successful flushes
	FlushErrors   uint64 // flushes that exhausted retries or were rejected
	Retries       uint64 // individual retry attempts
}

// senderStatsCollector provides internal methods for updating stats.
// Not exported - senders update their own stats.
type senderStatsCollector struct {
	rowsCommitted atomic.Uint64
	rowsSent      atomic.Uint64
	bytesSent     atomic.Uint64
	flushes       atomic.Uint64
	flushErrors   atomic.Uint64
	retries       atomic.Uint64
}

func (c *senderStatsCollector) snapshot() SenderStats {
	return SenderStats{
		RowsCommitted: c.rowsCommitted.Load(),
		RowsSent:      c.rowsSent.Load(),
		BytesSent:     c.bytesSent.Load(),
		Flushes:       c.flushes.Load(),
		FlushErrors:   c.flushErrors.Load(),
		Retries:       c.retries.Load(),
	}
}

// PoolStats contains statistics about a SenderPool.
type PoolStats struct {
	// Lifetime counters
	AcquireCount     uint64 // total acquire attempts
	AcquireWaitCount uint64 // acquires that had to wait
	CreatedSenders   uint64 // total senders created
	DestroyedSenders uint64 // total senders destroyed
	AcquireErrors    uint64 // failed acquire attempts

	// Current state gauges
	TotalSenders  int32 // senders in pool (active + idle)
	IdleSenders   int32 // idle senders available
	ActiveSenders int32 // senders currently acquired
}
