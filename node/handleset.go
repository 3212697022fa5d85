package node

import "sort"

// HandleSet is a set of socket descriptors.
type HandleSet map[int]struct{}

func NewHandleSet(fds ...int) HandleSet {
	s := make(HandleSet, len(fds))
	for _, fd := range fds {
		s[fd] = struct{}{}
	}
	return s
}

func (s HandleSet) Has(fd int) bool {
	_, ok := s[fd]
	return ok
}

func (s HandleSet) Add(fd int) {
	s[fd] = struct{}{}
}

func (s HandleSet) Remove(fd int) {
	delete(s, fd)
}

func (s HandleSet) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s HandleSet) Sorted() []int {
	fds := make([]int, 0, len(s))
	for fd := range s {
		fds = append(fds, fd)
	}
	sort.Ints(fds)
	return fds
}

func (s HandleSet) Clone() HandleSet {
	c := make(HandleSet, len(s))
	for fd := range s {
		c[fd] = struct{}{}
	}
	return c
}
