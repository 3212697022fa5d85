package node

import (
	"fmt"

	"github.com/fzft/go-relay/log"
	"go.uber.org/zap"
)

// Dispatcher runs one iteration of work for the handles a wait reported ready.
type Dispatcher struct {
	pool     *Pool
	socket   Socket
	listenFD int
	readBuf  []byte
}

func NewDispatcher(pool *Pool, socket Socket, readBufferSize int) *Dispatcher {
	return &Dispatcher{
		pool:     pool,
		socket:   socket,
		listenFD: pool.Listener(),
		readBuf:  make([]byte, readBufferSize),
	}
}

// Dispatch accepts pending clients, then visits every live connection once,
// reading before writing. A connection removed earlier in the iteration is
// skipped and is never a broadcast target for later events.
func (d *Dispatcher) Dispatch(ready Ready) {
	if d.listenFD >= 0 && ready.Read.Has(d.listenFD) {
		d.acceptAll()
	}

	for _, fd := range d.pool.Handles() {
		if _, ok := d.pool.Get(fd); !ok {
			continue
		}
		if ready.Read.Has(fd) && !d.handleRead(fd) {
			continue
		}
		if ready.Write.Has(fd) {
			d.handleWrite(fd)
		}
	}
}

// acceptAll accepts until the listener would block. Failures end the accept
// loop for this iteration but never the iteration itself.
func (d *Dispatcher) acceptAll() {
	for {
		connFd, ip, err := d.socket.Accept(d.listenFD)
		if err != nil {
			// Handle the case where there are no more connections to accept.
			if IsTemporaryError(err) {
				return
			}
			log.Logger.Error("accept error", zap.Error(err))
			return
		}

		conn, err := d.pool.AddConnection(connFd, ip)
		if err != nil {
			log.Logger.Error("add connection error", zap.Int("fd", connFd), zap.Error(err))
			if cerr := d.socket.Close(connFd); cerr != nil {
				log.Logger.Debug("close rejected connection", zap.Int("fd", connFd), zap.Error(cerr))
			}
			continue
		}

		log.Logger.Info("new connection",
			zap.Int("fd", connFd),
			zap.String("ip", ip),
			zap.Stringer("session", conn.ID()),
		)
	}
}

// handleRead reads once and broadcasts what arrived. It reports whether fd
// is still live.
func (d *Dispatcher) handleRead(fd int) bool {
	n, err := d.socket.Read(fd, d.readBuf)
	switch {
	case err != nil && IsTemporaryError(err):
		return true
	case err != nil:
		d.remove(fd, fmt.Errorf("%w: %v", ErrRead, err))
		return false
	case n == 0:
		d.remove(fd, ErrPeerClosed)
		return false
	}

	conn, _ := d.pool.Get(fd)
	conn.bytesIn += uint64(n)
	d.pool.Stats().bytesIn.Add(uint64(n))
	log.Logger.Debug("read bytes", zap.Int("fd", fd), zap.Int("n", n))

	recipients, err := d.pool.EnqueueBroadcast(fd, d.readBuf[:n])
	if err != nil {
		log.Logger.Debug("broadcast skipped", zap.Int("fd", fd), zap.Error(err))
		return true
	}
	log.Logger.Debug("queued broadcast", zap.Int("fd", fd), zap.Int("recipients", recipients))
	return true
}

func (d *Dispatcher) handleWrite(fd int) {
	if err := d.pool.FlushConnection(fd); err != nil {
		d.remove(fd, err)
	}
}

func (d *Dispatcher) remove(fd int, cause error) {
	log.Logger.Info("closing connection", zap.Int("fd", fd), zap.Error(cause))
	if err := d.pool.RemoveConnection(fd); err != nil {
		log.Logger.Warn("remove connection", zap.Int("fd", fd), zap.Error(err))
	}
}
