package hub

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Client is one connected viewer. Outbound messages are queued in a bounded
// channel drained by the connection's writer goroutine.
type Client struct {
	id   string
	send chan []byte

	mu      sync.Mutex // guards send and closed
	closed  bool
	dropped atomic.Uint64

	rooms map[Room]struct{} // guarded by the hub lock
}

func newClient(buffer int) *Client {
	if buffer < 1 {
		buffer = 1
	}
	return &Client{
		id:    uuid.NewString(),
		send:  make(chan []byte, buffer),
		rooms: make(map[Room]struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Outbound is closed when the client is unregistered.
func (c *Client) Outbound() <-chan []byte { return c.send }

// Dropped is the number of messages discarded because the queue was full.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// enqueue never blocks. When the queue is full the oldest message is discarded.
func (c *Client) enqueue(msg []byte) (dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	for {
		select {
		case c.send <- msg:
			return dropped
		default:
		}
		select {
		case <-c.send:
			c.dropped.Add(1)
			dropped = true
		default:
		}
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
