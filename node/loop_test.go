package node

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type waitFunc func(read, write HandleSet) (Ready, error)

// fakeMux replays scripted waits; once the script runs out it reports an
// interruption so a stopped loop can exit.
type fakeMux struct {
	script []waitFunc
	calls  int
	wakes  int
	seen   []HandleSet
}

func (m *fakeMux) Wait(read, write HandleSet, highest int) (Ready, error) {
	m.calls++
	m.seen = append(m.seen, read)
	if len(m.script) == 0 {
		return Ready{}, ErrInterrupted
	}
	next := m.script[0]
	m.script = m.script[1:]
	return next(read, write)
}

func (m *fakeMux) Wake() error {
	m.wakes++
	return nil
}

func (m *fakeMux) Close() error {
	return nil
}

func newTestLoop(t *testing.T, fds ...int) (*EventLoop, *fakeMux, *Pool, *fakeSocket) {
	t.Helper()
	d, pool, sock := newTestDispatcher(t, fds...)
	mux := &fakeMux{}
	return NewEventLoop(pool, mux, d), mux, pool, sock
}

func TestStopBeforeRunDrains(t *testing.T) {
	loop, mux, pool, sock := newTestLoop(t, 5, 6)

	loop.Stop()
	assert.Equal(t, StateStopping, loop.State())
	require.NoError(t, loop.Run())

	assert.Equal(t, 0, mux.calls)
	assert.Equal(t, 1, mux.wakes)
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, 1, sock.closed[5])
	assert.Equal(t, 1, sock.closed[6])

	select {
	case <-loop.Done():
	default:
		t.Fatal("Done not closed after Run returned")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	loop, mux, _, _ := newTestLoop(t)
	loop.Stop()
	loop.Stop()
	assert.Equal(t, 1, mux.wakes)
}

func TestLoopDispatchesUntilStopped(t *testing.T) {
	loop, mux, pool, sock := newTestLoop(t, 5, 6)
	sock.reads[5] = []readResult{{data: []byte("ping")}}

	mux.script = []waitFunc{
		func(read, write HandleSet) (Ready, error) {
			return Ready{Count: 1, Read: NewHandleSet(5), Write: NewHandleSet()}, nil
		},
		func(read, write HandleSet) (Ready, error) {
			assert.True(t, write.Has(6), "broadcast raised write interest")
			return Ready{Count: 1, Read: NewHandleSet(), Write: NewHandleSet(6)}, nil
		},
		func(read, write HandleSet) (Ready, error) {
			assert.False(t, write.Has(6), "flushed queue clears write interest")
			loop.Stop()
			return Ready{}, ErrInterrupted
		},
	}

	require.NoError(t, loop.Run())
	assert.Equal(t, "PING", sock.got(6))
	assert.Equal(t, 3, mux.calls)
	assert.Equal(t, 0, pool.Len())
}

func TestLoopSurvivesMultiplexerFault(t *testing.T) {
	loop, mux, _, sock := newTestLoop(t, 5, 6)
	sock.reads[5] = []readResult{{data: []byte("after fault")}}

	mux.script = []waitFunc{
		func(read, write HandleSet) (Ready, error) {
			// partial results alongside a fault must not be dispatched
			return Ready{Count: 1, Read: NewHandleSet(5), Write: NewHandleSet()},
				fmt.Errorf("%w: epoll_wait: bad", ErrMultiplex)
		},
		func(read, write HandleSet) (Ready, error) {
			assert.Empty(t, write, "nothing was dispatched on the faulted iteration")
			return Ready{}, ErrInterrupted
		},
		func(read, write HandleSet) (Ready, error) {
			return Ready{Count: 1, Read: NewHandleSet(5), Write: NewHandleSet()}, nil
		},
		func(read, write HandleSet) (Ready, error) {
			assert.True(t, write.Has(6))
			loop.Stop()
			return Ready{}, ErrInterrupted
		},
	}

	require.NoError(t, loop.Run())
	assert.Equal(t, 4, mux.calls)
}

func TestLoopIgnoresIdleTimeout(t *testing.T) {
	loop, mux, pool, _ := newTestLoop(t, 5)

	mux.script = []waitFunc{
		func(read, write HandleSet) (Ready, error) {
			return Ready{Read: NewHandleSet(), Write: NewHandleSet()}, nil
		},
		func(read, write HandleSet) (Ready, error) {
			loop.Stop()
			return Ready{}, ErrInterrupted
		},
	}

	require.NoError(t, loop.Run())
	assert.Equal(t, 2, mux.calls)
	assert.Equal(t, 0, pool.Len())
}

func TestLoopPassesListenerInReadInterest(t *testing.T) {
	loop, mux, _, _ := newTestLoop(t, 5)
	mux.script = []waitFunc{
		func(read, write HandleSet) (Ready, error) {
			loop.Stop()
			return Ready{}, ErrInterrupted
		},
	}

	require.NoError(t, loop.Run())
	require.Len(t, mux.seen, 1)
	assert.Equal(t, []int{testListenFD, 5}, mux.seen[0].Sorted())
}

func TestShutdownWithQueuedMessages(t *testing.T) {
	loop, mux, pool, sock := newTestLoop(t, 5, 6)
	for i := 0; i < 3; i++ {
		_, err := pool.EnqueueBroadcast(5, []byte(fmt.Sprintf("msg %d", i)))
		require.NoError(t, err)
	}
	conn, _ := pool.Get(6)
	require.Equal(t, 3, conn.Pending())

	mux.script = []waitFunc{
		func(read, write HandleSet) (Ready, error) {
			loop.Stop()
			return Ready{}, ErrInterrupted
		},
	}

	require.NoError(t, loop.Run())
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, 1, sock.closed[6])
	assert.Equal(t, 0, sock.writeCalls[6], "shutdown closes, it does not flush")
	assert.Equal(t, uint64(3), pool.Stats().Snapshot().Dropped)
}

func TestLoopDrainErrorIsReturned(t *testing.T) {
	loop, _, _, sock := newTestLoop(t, 5)
	sock.closeErr = errors.New("close failed")

	loop.Stop()
	assert.Error(t, loop.Run())
}

func TestStopFromAnotherGoroutine(t *testing.T) {
	sock := newFakeSocket()
	pool := NewPool(sock)
	poller, err := NewPoller(16, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = poller.Close() })
	loop := NewEventLoop(pool, poller, NewDispatcher(pool, sock, 64))

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	time.Sleep(20 * time.Millisecond)
	loop.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not stop")
	}
}
