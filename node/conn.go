package node

import (
	"time"

	"github.com/fzft/go-relay/list"
	"github.com/google/uuid"
)

// message is one queued outbound buffer. raw is captured at receipt time and
// shared read-only between recipients. out is the transformed copy for this
// recipient, built once on the first flush attempt, and written tracks how
// much of it the peer has already accepted.
type message struct {
	raw     []byte
	out     []byte
	written int
}

func (m *message) remaining() int {
	if m.out == nil {
		return len(m.raw)
	}
	return len(m.out) - m.written
}

// Connection is an accepted client socket and its pending output.
type Connection struct {
	fd        int
	id        uuid.UUID
	ip        string
	createdAt time.Time
	outbound  *list.List[*message]
	bytesIn   uint64
	bytesOut  uint64
}

func newConnection(fd int, ip string) *Connection {
	return &Connection{
		fd:        fd,
		id:        uuid.New(),
		ip:        ip,
		createdAt: time.Now(),
		outbound:  list.New[*message](),
	}
}

// Fd returns the file descriptor of the connection.
func (c *Connection) Fd() int {
	return c.fd
}

// ID returns the session id. Unlike the fd it is never reused.
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// Ip returns the peer ip of the connection.
func (c *Connection) Ip() string {
	return c.ip
}

// Pending returns the number of queued outbound buffers.
func (c *Connection) Pending() int {
	return c.outbound.Len()
}

// PendingBytes returns the number of queued bytes not yet written.
func (c *Connection) PendingBytes() int {
	total := 0
	it := c.outbound.NewIterator(list.DirectionHead)
	for node := it.Next(); node != nil; node = it.Next() {
		total += node.Value.remaining()
	}
	return total
}

func (c *Connection) BytesIn() uint64 {
	return c.bytesIn
}

func (c *Connection) BytesOut() uint64 {
	return c.bytesOut
}

func (c *Connection) Age() time.Duration {
	return time.Since(c.createdAt)
}
