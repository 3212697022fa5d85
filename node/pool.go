package node

import (
	"fmt"

	"github.com/fzft/go-relay/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// noHandle is the highest handle of a pool that tracks nothing.
const noHandle = -1

// Pool owns every live Connection and the read/write interest sets handed to
// the multiplexer. It is not safe for concurrent use: only the event loop
// goroutine may touch it.
//
// Every live connection is read-interested. A connection is write-interested
// exactly while its outbound queue is non-empty.
type Pool struct {
	socket      Socket
	transformer Transformer
	stats       *Stats

	conns         map[int]*Connection
	readInterest  HandleSet
	writeInterest HandleSet
	listenFD      int
	highest       int
	maxConns      int // 0 means unlimited
}

type PoolOption func(*Pool)

// WithMaxConnections caps the number of live connections. Adding beyond the
// cap fails with ErrAllocation.
func WithMaxConnections(n int) PoolOption {
	return func(p *Pool) {
		p.maxConns = n
	}
}

func WithTransformer(t Transformer) PoolOption {
	return func(p *Pool) {
		p.transformer = t
	}
}

func WithStats(s *Stats) PoolOption {
	return func(p *Pool) {
		p.stats = s
	}
}

// NewPool returns an empty pool with no listener and no connections.
func NewPool(socket Socket, opts ...PoolOption) *Pool {
	p := &Pool{
		socket:        socket,
		transformer:   UpperCase,
		stats:         NewStats(),
		conns:         make(map[int]*Connection),
		readInterest:  NewHandleSet(),
		writeInterest: NewHandleSet(),
		listenFD:      noHandle,
		highest:       noHandle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetListener tracks the listening socket: it is always read-interested and
// counts towards Highest, but it is never treated as a client.
func (p *Pool) SetListener(fd int) {
	if p.listenFD != noHandle {
		p.readInterest.Remove(p.listenFD)
	}
	p.listenFD = fd
	p.readInterest.Add(fd)
	p.recomputeHighest()
}

func (p *Pool) Listener() int {
	return p.listenFD
}

// AddConnection registers fd with an empty outbound queue and makes it
// read-interested.
func (p *Pool) AddConnection(fd int, ip string) (*Connection, error) {
	if fd < 0 || fd == p.listenFD {
		return nil, fmt.Errorf("%w: fd %d cannot be a client", ErrInvalidArgument, fd)
	}
	if _, ok := p.conns[fd]; ok {
		return nil, fmt.Errorf("%w: fd %d already tracked", ErrInvalidArgument, fd)
	}
	if p.maxConns > 0 && len(p.conns) >= p.maxConns {
		return nil, fmt.Errorf("%w: pool is at capacity (%d connections)", ErrAllocation, p.maxConns)
	}

	conn := newConnection(fd, ip)
	p.conns[fd] = conn
	p.readInterest.Add(fd)
	if fd > p.highest {
		p.highest = fd
	}
	p.stats.accepted.Inc()
	return conn, nil
}

// RemoveConnection closes fd, discards its queue and forgets it. The
// bookkeeping always completes; a close failure is returned afterwards.
func (p *Pool) RemoveConnection(fd int) error {
	conn, ok := p.conns[fd]
	if !ok {
		return fmt.Errorf("%w: fd %d", ErrNotFound, fd)
	}

	closeErr := p.socket.Close(fd)

	dropped := conn.outbound.Len()
	conn.outbound.Clear()

	delete(p.conns, fd)
	p.readInterest.Remove(fd)
	p.writeInterest.Remove(fd)
	if fd == p.highest {
		p.recomputeHighest()
	}

	p.stats.closed.Inc()
	p.stats.dropped.Add(uint64(dropped))

	log.Logger.Info("removing connection",
		zap.Int("fd", fd),
		zap.Stringer("session", conn.id),
		zap.Int("dropped", dropped),
		zap.Duration("age", conn.Age()),
	)

	if closeErr != nil {
		return fmt.Errorf("close fd %d: %w", fd, closeErr)
	}
	return nil
}

// recomputeHighest scans the remaining handles; map order says nothing about
// handle order.
func (p *Pool) recomputeHighest() {
	highest := p.listenFD
	for fd := range p.conns {
		if fd > highest {
			highest = fd
		}
	}
	p.highest = highest
}

// EnqueueBroadcast queues payload for every live connection except sender
// and returns the number of recipients. payload is copied, so the caller may
// reuse its buffer.
func (p *Pool) EnqueueBroadcast(sender int, payload []byte) (int, error) {
	if len(payload) == 0 {
		return 0, fmt.Errorf("%w: empty payload", ErrInvalidArgument)
	}
	if len(p.conns) == 0 {
		return 0, fmt.Errorf("%w: no connections", ErrInvalidArgument)
	}

	raw := make([]byte, len(payload))
	copy(raw, payload)

	recipients := 0
	for _, fd := range p.Handles() {
		if fd == sender {
			continue
		}
		p.conns[fd].outbound.PushBack(&message{raw: raw})
		p.writeInterest.Add(fd)
		recipients++
	}
	if recipients > 0 {
		p.stats.broadcasts.Inc()
	}
	return recipients, nil
}

// FlushConnection writes queued buffers to fd in FIFO order, transforming
// each one once before its first byte goes out. It stops early without error
// when the socket would block, leaving the rest queued. A failed or
// zero-progress write returns ErrWrite and the caller must remove fd.
func (p *Pool) FlushConnection(fd int) error {
	conn, ok := p.conns[fd]
	if !ok {
		return fmt.Errorf("%w: fd %d", ErrNotFound, fd)
	}
	defer func() {
		if conn.outbound.Len() == 0 {
			p.writeInterest.Remove(fd)
		}
	}()

	for conn.outbound.Len() > 0 {
		msg := conn.outbound.Front().Value
		if msg.out == nil {
			msg.out = p.transformer.Transform(msg.raw)
		}

		for msg.written < len(msg.out) {
			n, err := p.socket.Write(fd, msg.out[msg.written:])
			if err != nil {
				if IsTemporaryError(err) {
					log.Logger.Debug("socket buffer full, keeping output queued",
						zap.Int("fd", fd), zap.Int("pending", conn.PendingBytes()))
					return nil
				}
				return fmt.Errorf("%w: fd %d: %v", ErrWrite, fd, err)
			}
			if n <= 0 {
				return fmt.Errorf("%w: fd %d: write made no progress", ErrWrite, fd)
			}
			msg.written += n
			conn.bytesOut += uint64(n)
			p.stats.bytesOut.Add(uint64(n))
			log.Logger.Debug("wrote bytes", zap.Int("fd", fd), zap.Int("n", n))
		}

		conn.outbound.PopFront()
	}
	return nil
}

// Get returns the live connection for fd.
func (p *Pool) Get(fd int) (*Connection, bool) {
	conn, ok := p.conns[fd]
	return conn, ok
}

// Len returns the number of live connections.
func (p *Pool) Len() int {
	return len(p.conns)
}

// Handles returns the live connection handles in ascending order.
func (p *Pool) Handles() []int {
	fds := make(HandleSet, len(p.conns))
	for fd := range p.conns {
		fds.Add(fd)
	}
	return fds.Sorted()
}

// Highest returns the largest tracked handle, listener included, or -1.
func (p *Pool) Highest() int {
	return p.highest
}

// ReadInterest returns a snapshot of the read-interest set.
func (p *Pool) ReadInterest() HandleSet {
	return p.readInterest.Clone()
}

// WriteInterest returns a snapshot of the write-interest set.
func (p *Pool) WriteInterest() HandleSet {
	return p.writeInterest.Clone()
}

func (p *Pool) Stats() *Stats {
	return p.stats
}

// Drain removes every connection. Queued output is discarded, not flushed.
func (p *Pool) Drain() error {
	var errs error
	for _, fd := range p.Handles() {
		errs = multierr.Append(errs, p.RemoveConnection(fd))
	}
	return errs
}
