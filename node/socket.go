package node

// Socket performs the raw descriptor I/O used by the pool and dispatcher.
// All descriptors are non-blocking; a call that would block returns an error
// for which IsTemporaryError reports true.
type Socket interface {
	// Accept takes one pending connection from the listener.
	Accept(listenFD int) (fd int, ip string, err error)

	Read(fd int, p []byte) (int, error)

	Write(fd int, p []byte) (int, error)

	Close(fd int) error
}
