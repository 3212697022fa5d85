//go:build linux
// +build linux

package node

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/fzft/go-relay/log"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// https://copyconstruct.medium.com/the-method-to-epolls-madness-d9d2d6378642

const (
	readEvents      = unix.EPOLLPRI | unix.EPOLLIN | unix.EPOLLRDHUP
	writeEvents     = unix.EPOLLOUT
	readWriteEvents = readEvents | writeEvents

	// hangup conditions epoll reports whether or not they were asked for
	closeEvents = unix.EPOLLHUP | unix.EPOLLERR
)

type pipeSignal uint64

const (
	SignalWake pipeSignal = 1
)

// Poller is the epoll Multiplexer. It is level triggered: a handle stays
// ready until the dispatcher consumes the condition.
type Poller struct {
	*Registry
	epollFd   int
	efd       int // eventfd used by Wake
	events    []unix.EpollEvent
	maxEvents int
	msec      int
}

// NewPoller creates the epoll instance and its wake-up eventfd. maxEvents
// bounds the events returned by one wait; timeout 0 blocks indefinitely.
func NewPoller(maxEvents int, timeout time.Duration) (*Poller, error) {
	if maxEvents < 1 {
		return nil, fmt.Errorf("%w: maxEvents must be >= 1", ErrInvalidArgument)
	}

	// Create a new epoll instance
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		log.Logger.Error("Failed to create epoll", zap.Error(err))
		return nil, fmt.Errorf("%w: epoll_create1: %v", ErrResource, err)
	}

	r := NewRegistry(epfd)

	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		log.Logger.Error("Failed to create eventfd", zap.Error(err))
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("%w: eventfd: %v", ErrResource, err)
	}

	// Register the eventfd to epoll for read events
	if err := r.registerRead(efd); err != nil {
		log.Logger.Error("Failed to add eventfd to epoll", zap.Error(err))
		_ = unix.Close(efd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("%w: %v", ErrResource, err)
	}

	msec := -1
	if timeout > 0 {
		msec = int(timeout / time.Millisecond)
		if msec == 0 {
			msec = 1
		}
	}

	return &Poller{
		Registry:  r,
		epollFd:   epfd,
		efd:       efd,
		events:    make([]unix.EpollEvent, minInt(maxEvents, 64)),
		maxEvents: maxEvents,
		msec:      msec,
	}, nil
}

// Wait syncs the kernel registrations to the interest sets, then blocks in
// epoll_wait. Hangups and errors on a read-interested handle are reported as
// read-ready so the read surfaces them.
func (p *Poller) Wait(readInterest, writeInterest HandleSet, highest int) (Ready, error) {
	if err := p.sync(readInterest, writeInterest); err != nil {
		return Ready{}, fmt.Errorf("%w: %v", ErrMultiplex, err)
	}
	p.growEvents(highest)

	// EpollWait blocks until there is an event to report
	// n == 0 means the optional timeout expired
	n, err := unix.EpollWait(p.epollFd, p.events, p.msec)
	if err != nil {
		if err == unix.EINTR {
			return Ready{}, ErrInterrupted
		}
		return Ready{}, fmt.Errorf("%w: epoll_wait: %v", ErrMultiplex, err)
	}

	ready := Ready{Read: NewHandleSet(), Write: NewHandleSet()}
	woken := false
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		fd := int(ev.Fd)

		if fd == p.efd {
			p.drainSignal()
			woken = true
			continue
		}

		if ev.Events&(readEvents|closeEvents) != 0 && readInterest.Has(fd) {
			ready.Read.Add(fd)
		}
		if ev.Events&(writeEvents|closeEvents) != 0 && writeInterest.Has(fd) {
			ready.Write.Add(fd)
		}
	}
	ready.Count = ready.Read.Len() + ready.Write.Len()

	if woken && ready.Count == 0 {
		return ready, ErrInterrupted
	}
	return ready, nil
}

// sync brings the epoll set in line with the interest sets.
func (p *Poller) sync(readInterest, writeInterest HandleSet) error {
	for fd := range readInterest {
		var err error
		if writeInterest.Has(fd) {
			err = p.registerReadWrite(fd)
		} else {
			err = p.registerRead(fd)
		}
		if err != nil {
			return err
		}
	}
	for fd := range writeInterest {
		if readInterest.Has(fd) {
			continue
		}
		if err := p.register(fd, writeEvents); err != nil {
			return err
		}
	}
	for fd := range p.epollSet {
		if fd == p.efd || readInterest.Has(fd) || writeInterest.Has(fd) {
			continue
		}
		if err := p.unregister(fd); err != nil {
			return err
		}
	}
	return nil
}

// growEvents sizes the event buffer to the handle range, up to maxEvents.
func (p *Poller) growEvents(highest int) {
	want := minInt(highest+2, p.maxEvents)
	if want > len(p.events) {
		p.events = make([]unix.EpollEvent, want)
	}
}

// Wake sends a signal to the event fd.
func (p *Poller) Wake() error {
	return p.sendSignal(SignalWake)
}

func (p *Poller) sendSignal(sig pipeSignal) error {
	_, err := unix.Write(p.efd, (*(*[8]byte)(unsafe.Pointer(&sig)))[:])
	if err != nil && err != unix.EAGAIN {
		log.Logger.Error("Failed to write to event fd", zap.Error(err))
		return err
	}
	return nil
}

// drainSignal resets the eventfd counter so it stops reporting readable.
func (p *Poller) drainSignal() {
	var buf uint64
	_, err := unix.Read(p.efd, (*(*[8]byte)(unsafe.Pointer(&buf)))[:])
	if err != nil && err != unix.EAGAIN {
		log.Logger.Error("Failed to read from event fd", zap.Error(err))
	}
}

// Close releases the eventfd and the epoll instance. Client and listener
// descriptors belong to their owners and are left open.
func (p *Poller) Close() error {
	if p.epollFd < 0 {
		return nil
	}
	var errs error
	if err := p.Delete(p.efd); err != nil {
		log.Logger.Debug("Failed to delete eventfd from epoll", zap.Error(err))
	}
	errs = multierr.Append(errs, CloseFd(p.efd))
	errs = multierr.Append(errs, CloseFd(p.epollFd))
	p.efd, p.epollFd, p.Registry.epollFd = -1, -1, -1
	p.epollSet = make(map[int]uint32)
	return errs
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
