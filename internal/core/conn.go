package core

import "sync"

// DefaultSendBuffer is the outbound queue size used when none is configured.
const DefaultSendBuffer = 32

// ConnState is the protocol state of a single connection.
type ConnState int32

const (
	// StateAnonymous is a connected session that has not identified yet.
	StateAnonymous ConnState = iota
	// StateIdentified is a session with a registered profile.
	StateIdentified
	// StateClosed is a session that has disconnected.
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateIdentified:
		return "identified"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is a live transport session as seen by the core layer.
// The transport owns it; the core keys memberships and profiles by its pointer.
type Conn struct {
	ID string

	events chan *Event

	// seq serializes hub operations issued for this connection.
	seq sync.Mutex

	mu    sync.Mutex
	state ConnState
}

// NewConn constructs an anonymous connection with a bounded outbound queue.
func NewConn(id string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Conn{
		ID:     id,
		events: make(chan *Event, buffer),
	}
}

// Events returns the outbound queue. It is closed once the connection disconnects.
func (c *Conn) Events() <-chan *Event {
	return c.events
}

// State reports the current protocol state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) transition(from, to ConnState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return false
	}
	c.state = to
	return true
}

// close moves the connection to StateClosed and closes its queue. Returns false if already closed.
func (c *Conn) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false
	}
	c.state = StateClosed
	close(c.events)
	return true
}

// deliver enqueues an event without blocking. A full or closed queue drops it.
func (c *Conn) deliver(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}
