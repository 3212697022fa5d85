package node

import (
	"errors"

	"github.com/fzft/go-relay/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type State int32

const (
	StateRunning State = iota
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// EventLoop alternates between the multiplexer and the dispatcher on a
// single goroutine until Stop is called, then drains the pool.
type EventLoop struct {
	pool       *Pool
	mux        Multiplexer
	dispatcher *Dispatcher
	state      atomic.Int32
	done       chan struct{}
}

func NewEventLoop(pool *Pool, mux Multiplexer, dispatcher *Dispatcher) *EventLoop {
	return &EventLoop{
		pool:       pool,
		mux:        mux,
		dispatcher: dispatcher,
		done:       make(chan struct{}),
	}
}

// Run blocks until Stop. Per-connection failures and multiplexer faults are
// logged and never end the loop. The returned error only reports failures to
// close connections while draining.
func (l *EventLoop) Run() error {
	defer close(l.done)

	for l.State() == StateRunning {
		ready, err := l.mux.Wait(l.pool.ReadInterest(), l.pool.WriteInterest(), l.pool.Highest())
		if err != nil {
			if errors.Is(err, ErrInterrupted) {
				log.Logger.Debug("multiplexer interrupted", zap.Stringer("state", l.State()))
				continue
			}
			log.Logger.Error("multiplexer fault, skipping iteration", zap.Error(err))
			continue
		}
		if ready.Count == 0 {
			continue
		}
		l.dispatcher.Dispatch(ready)
	}

	log.Logger.Info("event loop stopping", zap.Int("connections", l.pool.Len()))
	return l.pool.Drain()
}

// Stop requests shutdown. The current iteration finishes first. Safe to call
// from any goroutine and more than once.
func (l *EventLoop) Stop() {
	if !l.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return
	}
	if err := l.mux.Wake(); err != nil {
		log.Logger.Error("failed to wake multiplexer", zap.Error(err))
	}
}

func (l *EventLoop) State() State {
	return State(l.state.Load())
}

// Done is closed once Run has drained the pool and returned.
func (l *EventLoop) Done() <-chan struct{} {
	return l.done
}
