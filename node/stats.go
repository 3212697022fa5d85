package node

import "go.uber.org/atomic"

// Stats counts relay activity. The event loop is the only writer; any
// goroutine may read.
type Stats struct {
	accepted   atomic.Uint64
	closed     atomic.Uint64
	bytesIn    atomic.Uint64
	bytesOut   atomic.Uint64
	broadcasts atomic.Uint64
	dropped    atomic.Uint64 // queued buffers discarded when a connection was removed
}

type StatsSnapshot struct {
	Accepted   uint64
	Closed     uint64
	Live       int64
	BytesIn    uint64
	BytesOut   uint64
	Broadcasts uint64
	Dropped    uint64
}

func NewStats() *Stats {
	return &Stats{}
}

// Live is the number of connections currently in the pool.
func (s *Stats) Live() int64 {
	return int64(s.accepted.Load()) - int64(s.closed.Load())
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Accepted:   s.accepted.Load(),
		Closed:     s.closed.Load(),
		Live:       s.Live(),
		BytesIn:    s.bytesIn.Load(),
		BytesOut:   s.bytesOut.Load(),
		Broadcasts: s.broadcasts.Load(),
		Dropped:    s.dropped.Load(),
	}
}
