// Package tcp provides TCP transport implementation for the chat server.
package tcp

import (
	"bufio"
	"context"
	"net"

	"github.com/omochice/framed-chat/pkg/protocol"
)

// Conn adapts net.Conn to chat.Conn interface, framing every message.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader
}

// NewConn wraps a net.Conn.
func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, protocol.HeaderSize+protocol.MaxBodySize),
	}
}

// Read implements chat.Conn.
// Reads the 4-byte header, then exactly the announced number of body bytes.
func (c *Conn) Read(ctx context.Context) (protocol.Message, error) {
	return protocol.ReadMessage(c.reader)
}

// Write implements chat.Conn.
// The whole frame goes out in a single write.
func (c *Conn) Write(ctx context.Context, msg protocol.Message) error {
	return protocol.WriteMessage(c.conn, msg)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
