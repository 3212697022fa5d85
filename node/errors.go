package node

import "errors"

var (
	// ErrResource is a listener or multiplexer setup failure. Fatal at startup.
	ErrResource = errors.New("resource error")
	// ErrAllocation means a connection record could not be created.
	ErrAllocation = errors.New("allocation error")
	// ErrNotFound means a handle is not tracked by the pool.
	ErrNotFound = errors.New("connection not found")
	// ErrInvalidArgument is returned for empty payloads, empty pools and bad handles.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRead            = errors.New("read error")
	ErrPeerClosed      = errors.New("peer closed")
	// ErrWrite covers failed writes and writes that made no progress.
	ErrWrite = errors.New("write error")
	// ErrInterrupted is an expected wake-up of the multiplexer (signal or Stop).
	ErrInterrupted = errors.New("multiplexer interrupted")
	// ErrMultiplex is a genuine multiplexer fault; the iteration is skipped.
	ErrMultiplex = errors.New("multiplexer fault")
)
