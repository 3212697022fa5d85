//go:build linux
// +build linux

package node

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Registry is a wrapper around epoll. It keeps track of the event mask each
// fd is registered with so that unchanged interest costs no system call.
type Registry struct {
	epollFd  int
	epollSet map[int]uint32
}

func NewRegistry(epollFd int) *Registry {
	return &Registry{
		epollFd:  epollFd,
		epollSet: make(map[int]uint32),
	}
}

// register makes the kernel watch fd for exactly events.
func (r *Registry) register(fd int, events uint32) error {
	current, ok := r.epollSet[fd]
	if ok && current == events {
		return nil
	}

	var err error
	if ok {
		err = r.Mod(fd, events)
		// fd was closed and reused behind our back: the kernel forgot it.
		if errors.Is(err, unix.ENOENT) {
			err = r.Add(fd, events)
		}
	} else {
		err = r.Add(fd, events)
		if errors.Is(err, unix.EEXIST) {
			err = r.Mod(fd, events)
		}
	}
	if err != nil {
		return err
	}

	r.epollSet[fd] = events
	return nil
}

// registerRead registers fd to epoll for read events only.
func (r *Registry) registerRead(fd int) error {
	return r.register(fd, readEvents)
}

// registerReadWrite registers fd to epoll for read and write events.
func (r *Registry) registerReadWrite(fd int) error {
	return r.register(fd, readWriteEvents)
}

// unregister removes fd from epoll. Closing a descriptor already removes it
// from the kernel set, so EBADF and ENOENT are not errors here.
func (r *Registry) unregister(fd int) error {
	if _, ok := r.epollSet[fd]; !ok {
		return nil
	}
	delete(r.epollSet, fd)

	err := r.Delete(fd)
	if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
		return nil
	}
	return err
}

func (r *Registry) registered(fd int) (uint32, bool) {
	events, ok := r.epollSet[fd]
	return events, ok
}

func (r *Registry) Add(fd int, events uint32) error {
	return os.NewSyscallError("epoll_ctl add",
		unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events}))
}

func (r *Registry) Mod(fd int, events uint32) error {
	return os.NewSyscallError("epoll_ctl mod",
		unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Fd: int32(fd), Events: events}))
}

func (r *Registry) Delete(fd int) error {
	return os.NewSyscallError("epoll_ctl del", unix.EpollCtl(r.epollFd, unix.EPOLL_CTL_DEL, fd, nil))
}
