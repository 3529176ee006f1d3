package chat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/omochice/framed-chat/pkg/protocol"
)

// Handler receives the events of a Connection.
type Handler struct {
	// OnMessage is called from the read loop for every decoded message.
	OnMessage func(c *Connection, msg protocol.Message)

	// OnClose is called exactly once when the connection terminates,
	// with the error that caused it.
	OnClose func(c *Connection, err error)
}

// Connection drives one framed Conn: a sequential read loop and a
// flag + queue write drain so at most one write is ever in flight.
type Connection struct {
	id      string
	conn    Conn
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	queue   []protocol.Message
	writing bool
	idle    chan struct{} // closed whenever writing is false
	closed  bool
	err     error

	closing atomic.Bool
	done    chan struct{}
}

// NewConnection wraps conn. Nothing is read until Start is called.
func NewConnection(conn Conn, handler Handler) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Connection{
		id:      uuid.NewString(),
		conn:    conn,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		idle:    idle,
		done:    make(chan struct{}),
	}
}

// ID returns the unique connection id used in logs.
func (c *Connection) ID() string {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *Connection) RemoteAddr() string {
	return c.conn.RemoteAddr()
}

// Start begins the read loop.
func (c *Connection) Start() {
	go c.readLoop()
}

// Send queues msg for writing and returns immediately. Messages are written
// in the order Send was called. Sends on a closed connection are dropped.
func (c *Connection) Send(msg protocol.Message) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, msg)
	if c.writing {
		c.mu.Unlock()
		return
	}
	c.writing = true
	c.idle = make(chan struct{})
	c.mu.Unlock()

	go c.drain()
}

// Pending returns the number of queued, unwritten messages.
func (c *Connection) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Flush waits until every queued message has been written, the connection
// has terminated, or ctx is done. On a terminated connection it returns the
// termination cause.
func (c *Connection) Flush(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.closed {
			err := c.err
			c.mu.Unlock()
			return err
		}
		if !c.writing && len(c.queue) == 0 {
			c.mu.Unlock()
			return nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return c.Err()
		case <-idle:
		}
	}
}

// Close terminates the connection. It is safe to call more than once and
// from any goroutine.
func (c *Connection) Close() error {
	c.terminate(ErrConnectionClosed)
	return nil
}

// Done is closed once the connection has terminated and OnClose has returned.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Err returns the termination cause, or nil while the connection is live.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Connection) readLoop() {
	for {
		msg, err := c.conn.Read(c.ctx)
		if err != nil {
			c.terminate(err)
			return
		}
		if c.handler.OnMessage != nil {
			c.handler.OnMessage(c, msg)
		}
	}
}

// drain writes queued messages until the queue is empty, then releases the
// writer flag. Only the goroutine that set the flag runs it.
func (c *Connection) drain() {
	for {
		c.mu.Lock()
		if c.closed || len(c.queue) == 0 {
			c.stopWriting()
			c.mu.Unlock()
			return
		}
		msg := c.queue[0]
		c.queue[0] = protocol.Message{}
		c.queue = c.queue[1:]
		c.mu.Unlock()

		if err := c.conn.Write(c.ctx, msg); err != nil {
			c.terminate(fmt.Errorf("write to %s: %w", c.conn.RemoteAddr(), err))
			c.mu.Lock()
			c.stopWriting()
			c.mu.Unlock()
			return
		}
	}
}

// stopWriting releases the writer flag and wakes Flush. c.mu must be held.
func (c *Connection) stopWriting() {
	c.writing = false
	close(c.idle)
}

// terminate runs the close sequence once, whichever path reaches it first.
func (c *Connection) terminate(cause error) {
	if !c.closing.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	c.closed = true
	c.err = cause
	c.queue = nil
	c.mu.Unlock()

	c.cancel()
	_ = c.conn.Close()

	if c.handler.OnClose != nil {
		c.handler.OnClose(c, cause)
	}
	close(c.done)
}
