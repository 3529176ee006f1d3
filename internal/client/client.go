// Package client implements the chat client: one connection to the server,
// an input relay from a line source, and a printer for inbound messages.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omochice/framed-chat/internal/chat"
	"github.com/omochice/framed-chat/internal/transport/tcp"
	"github.com/omochice/framed-chat/internal/transport/ws"
	"github.com/omochice/framed-chat/pkg/protocol"
)

// Transport selects how the client reaches the server.
type Transport string

const (
	TransportTCP       Transport = "tcp"
	TransportWebSocket Transport = "ws"
)

const (
	// DefaultHost is the server host used when none is given.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the server port used when none is given.
	DefaultPort = "8080"

	// DisconnectNotice is printed once when the server goes away. Closing
	// the connection from this side prints nothing.
	DisconnectNotice = "Disconnected from server. Exiting..."
)

var (
	// ErrConnect wraps every resolve or dial failure.
	ErrConnect = errors.New("client: connect failed")
	// ErrNotConnected is returned when sending without a live connection.
	ErrNotConnected = errors.New("client: not connected to server")
	// ErrDisconnected is returned by Run when the server closed the connection.
	ErrDisconnected = errors.New("client: disconnected from server")
)

// Client represents a chat client
type Client struct {
	host      string
	port      string
	transport Transport
	wsPath    string
	resolver  tcp.Resolver
	out       LineWriter

	mu    sync.RWMutex
	conn  *chat.Connection
	alive atomic.Bool
}

// Option configures a Client.
type Option func(c *Client)

// WithTransport selects TCP (default) or WebSocket.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithWebSocketPath overrides ws.DefaultPath.
func WithWebSocketPath(path string) Option {
	return func(c *Client) {
		c.wsPath = path
	}
}

// WithResolver overrides the resolver used for TCP endpoints.
func WithResolver(r tcp.Resolver) Option {
	return func(c *Client) {
		c.resolver = r
	}
}

// WithOutput sets where inbound messages are printed.
func WithOutput(out LineWriter) Option {
	return func(c *Client) {
		c.out = out
	}
}

// New creates a new Client instance
func New(host, port string, opts ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	if port == "" {
		port = DefaultPort
	}
	c := &Client{
		host:      host,
		port:      port,
		transport: TransportTCP,
		wsPath:    ws.DefaultPath,
		out:       discard{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes a connection to the server and starts printing
// inbound messages.
func (c *Client) Connect(ctx context.Context) error {
	raw, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	conn := chat.NewConnection(raw, chat.Handler{
		OnMessage: func(_ *chat.Connection, msg protocol.Message) {
			c.out.WriteLine(msg.String())
		},
		OnClose: func(_ *chat.Connection, err error) {
			if !errors.Is(err, chat.ErrConnectionClosed) {
				if !errors.Is(err, io.EOF) {
					log.Printf("Connection to server lost: %v", err)
				}
				c.out.WriteLine(DisconnectNotice)
			}
			c.alive.Store(false)
		},
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.alive.Store(true)

	conn.Start()
	return nil
}

func (c *Client) dial(ctx context.Context) (chat.Conn, error) {
	switch c.transport {
	case TransportTCP:
		return tcp.Dial(ctx, c.resolver, c.host, c.port)
	case TransportWebSocket:
		return ws.Dial(ctx, "ws://"+net.JoinHostPort(c.host, c.port)+c.wsPath)
	default:
		return nil, fmt.Errorf("unknown transport %q", c.transport)
	}
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	return c.alive.Load()
}

// Done is closed when the connection terminates. It is nil before Connect.
func (c *Client) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Done()
}

// Send clamps text to protocol.MaxBodySize and queues it for the server.
func (c *Client) Send(text string) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !c.IsConnected() {
		return ErrNotConnected
	}
	conn.Send(protocol.ClampString(text))
	return nil
}

// Run relays lines from src to the server until src is exhausted, a
// "quit" or "exit" line is read, or the connection is gone. Empty lines
// are skipped.
func (c *Client) Run(src LineSource) error {
	for {
		line, err := src.NextLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		if !c.IsConnected() {
			return ErrDisconnected
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		if err := c.Send(line); err != nil {
			return err
		}
	}
}

// Disconnect writes out anything still queued, waiting at most timeout,
// then closes the connection.
func (c *Client) Disconnect(timeout time.Duration) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := conn.Flush(ctx); errors.Is(err, context.DeadlineExceeded) {
		log.Printf("Unsent messages dropped: %v", err)
	}
	conn.Close()
	<-conn.Done()
	c.alive.Store(false)
}
