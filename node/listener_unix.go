//go:build linux
// +build linux

package node

import (
	"fmt"
	"net"
)

// listenerFd returns the descriptor behind ln without duplicating it, so it
// stays non-blocking and is closed together with ln.
func listenerFd(ln net.Listener) (int, error) {
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return -1, fmt.Errorf("unsupported listener type %T", ln)
	}
	rc, err := tcpLn.SyscallConn()
	if err != nil {
		return -1, err
	}
	fd := -1
	if err := rc.Control(func(s uintptr) {
		fd = int(s)
	}); err != nil {
		return -1, err
	}
	return fd, nil
}
