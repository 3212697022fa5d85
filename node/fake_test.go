package node

import (
	"bytes"

	"golang.org/x/sys/unix"
)

type readResult struct {
	data []byte
	err  error
}

type acceptResult struct {
	fd  int
	ip  string
	err error
}

// fakeSocket scripts descriptor I/O for pool and dispatcher tests.
type fakeSocket struct {
	accepts    []acceptResult
	reads      map[int][]readResult
	writeErrs  map[int][]error // consumed one per Write call; nil entries succeed
	writeLimit map[int]int     // max bytes accepted per Write call
	zeroWrite  map[int]bool
	written    map[int]*bytes.Buffer
	writeCalls map[int]int
	closed     map[int]int
	closeErr   error
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		reads:      make(map[int][]readResult),
		writeErrs:  make(map[int][]error),
		writeLimit: make(map[int]int),
		zeroWrite:  make(map[int]bool),
		written:    make(map[int]*bytes.Buffer),
		writeCalls: make(map[int]int),
		closed:     make(map[int]int),
	}
}

func (f *fakeSocket) Accept(int) (int, string, error) {
	if len(f.accepts) == 0 {
		return -1, "", unix.EAGAIN
	}
	next := f.accepts[0]
	f.accepts = f.accepts[1:]
	return next.fd, next.ip, next.err
}

func (f *fakeSocket) Read(fd int, p []byte) (int, error) {
	queue := f.reads[fd]
	if len(queue) == 0 {
		return -1, unix.EAGAIN
	}
	next := queue[0]
	f.reads[fd] = queue[1:]
	if next.err != nil {
		return -1, next.err
	}
	return copy(p, next.data), nil
}

func (f *fakeSocket) Write(fd int, p []byte) (int, error) {
	f.writeCalls[fd]++
	if errs := f.writeErrs[fd]; len(errs) > 0 {
		err := errs[0]
		f.writeErrs[fd] = errs[1:]
		if err != nil {
			return -1, err
		}
	}
	if f.zeroWrite[fd] {
		return 0, nil
	}
	n := len(p)
	if limit, ok := f.writeLimit[fd]; ok && limit < n {
		n = limit
	}
	f.output(fd).Write(p[:n])
	return n, nil
}

func (f *fakeSocket) Close(fd int) error {
	f.closed[fd]++
	return f.closeErr
}

func (f *fakeSocket) output(fd int) *bytes.Buffer {
	buf, ok := f.written[fd]
	if !ok {
		buf = &bytes.Buffer{}
		f.written[fd] = buf
	}
	return buf
}

func (f *fakeSocket) got(fd int) string {
	return f.output(fd).String()
}
