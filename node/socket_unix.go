//go:build linux
// +build linux

package node

import (
	"net"

	"golang.org/x/sys/unix"
)

type unixSocket struct{}

// NewUnixSocket returns the Socket backed by the raw system calls.
func NewUnixSocket() Socket {
	return unixSocket{}
}

func (unixSocket) Accept(listenFD int) (int, string, error) {
	var (
		connFd int
		sa     unix.Sockaddr
		err    error
	)
	for {
		connFd, sa, err = unix.Accept4(listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return -1, "", err
	}

	var ip string
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		ip = net.IP(addr.Addr[:]).String()
	case *unix.SockaddrInet6:
		ip = net.IP(addr.Addr[:]).String()
	}
	return connFd, ip, nil
}

func (unixSocket) Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// Write sends with MSG_NOSIGNAL so a vanished peer yields EPIPE instead of SIGPIPE.
func (unixSocket) Write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.SendmsgN(fd, p, nil, nil, unix.MSG_NOSIGNAL)
		if err == unix.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

func (unixSocket) Close(fd int) error {
	return unix.Close(fd)
}
