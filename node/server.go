package node

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/fzft/go-relay/config"
	"github.com/fzft/go-relay/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server is the broadcast relay: one listener, one pool, one event loop.
type Server struct {
	cfg    *config.Config
	socket Socket
	stats  *Stats

	mu    sync.Mutex
	addr  net.Addr
	loop  *EventLoop
	ready chan struct{}
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:    cfg,
		socket: NewUnixSocket(),
		stats:  NewStats(),
		ready:  make(chan struct{}),
	}
}

// Run listens, serves until ctx is cancelled, then closes every client,
// the multiplexer and the listener. Setup failures wrap ErrResource and
// release whatever was acquired.
func (s *Server) Run(ctx context.Context) (err error) {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		log.Logger.Error("listen error", zap.Error(err))
		return fmt.Errorf("%w: listen on %s: %v", ErrResource, s.cfg.Addr(), err)
	}
	defer func() {
		err = multierr.Append(err, ln.Close())
	}()

	lnFd, err := listenerFd(ln)
	if err != nil {
		log.Logger.Error("Failed to get listener fd", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrResource, err)
	}

	poller, err := NewPoller(s.cfg.MaxEvents, s.cfg.PollTimeout)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, poller.Close())
	}()

	pool := NewPool(s.socket,
		WithMaxConnections(s.cfg.MaxConnections),
		WithStats(s.stats),
	)
	pool.SetListener(lnFd)
	loop := NewEventLoop(pool, poller, NewDispatcher(pool, s.socket, s.cfg.ReadBufferSize))

	s.mu.Lock()
	s.addr = ln.Addr()
	s.loop = loop
	s.mu.Unlock()
	close(s.ready)

	log.Logger.Info("listening on", zap.Stringer("addr", ln.Addr()), zap.Int("fd", lnFd))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
			log.Logger.Info("shutdown requested")
			loop.Stop()
		case <-loop.Done():
		}
		return nil
	})
	g.Go(loop.Run)

	err = g.Wait()

	snap := s.stats.Snapshot()
	log.Logger.Info("shutting down server",
		zap.Uint64("accepted", snap.Accepted),
		zap.Uint64("bytes_in", snap.BytesIn),
		zap.Uint64("bytes_out", snap.BytesOut),
		zap.Uint64("broadcasts", snap.Broadcasts),
		zap.Uint64("dropped", snap.Dropped),
	)
	return err
}

// Shutdown asks a running server to stop. Run returns once the pool is
// drained.
func (s *Server) Shutdown() {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) Stats() *Stats {
	return s.stats
}
