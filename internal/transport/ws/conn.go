// Package ws provides WebSocket transport implementation for the chat server.
//
// Every WebSocket binary message carries exactly one frame, header included,
// so inbound data is validated the same way as on a raw TCP stream.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/omochice/framed-chat/pkg/protocol"
)

const maxPayload = protocol.HeaderSize + protocol.MaxBodySize

// ErrUnsupportedFrame is returned for text, fragmented, unmasked, or
// oversized WebSocket frames.
var ErrUnsupportedFrame = errors.New("ws: unsupported websocket frame")

// ServerConn adapts a server side WebSocket connection, upgraded with
// gobwas/ws, to chat.Conn interface.
type ServerConn struct {
	conn    net.Conn
	reader  *wsutil.Reader
	control wsutil.FrameHandlerFunc

	// wmu keeps control replies from the reader from interleaving with
	// data frames from the writer.
	wmu sync.Mutex
}

// NewServerConn wraps an upgraded connection. reader holds any bytes the
// upgrade buffered; pass conn itself when there are none.
func NewServerConn(conn net.Conn, reader io.Reader) *ServerConn {
	if reader == nil {
		reader = conn
	}
	c := &ServerConn{conn: conn}
	handler := wsutil.ControlFrameHandler(conn, ws.StateServerSide)
	c.control = func(h ws.Header, r io.Reader) error {
		c.wmu.Lock()
		defer c.wmu.Unlock()
		return handler(h, r)
	}
	c.reader = &wsutil.Reader{
		Source:         reader,
		State:          ws.StateServerSide,
		MaxFrameSize:   maxPayload,
		OnIntermediate: c.control,
	}
	return c
}

// Read implements chat.Conn.
// Answers pings and close frames itself and returns the next binary frame.
func (c *ServerConn) Read(ctx context.Context) (protocol.Message, error) {
	for {
		h, err := c.reader.NextFrame()
		if err != nil {
			var perr ws.ProtocolError
			if errors.Is(err, wsutil.ErrFrameTooLarge) || errors.As(err, &perr) {
				return protocol.Message{}, fmt.Errorf("%w: %w", ErrUnsupportedFrame, err)
			}
			return protocol.Message{}, err
		}

		if h.OpCode.IsControl() {
			if err := c.control(h, c.reader); err != nil {
				var closed wsutil.ClosedError
				if errors.As(err, &closed) {
					return protocol.Message{}, io.EOF
				}
				return protocol.Message{}, err
			}
			continue
		}

		if h.OpCode != ws.OpBinary {
			return protocol.Message{}, fmt.Errorf("%w: opcode %#x", ErrUnsupportedFrame, h.OpCode)
		}
		if !h.Fin {
			return protocol.Message{}, fmt.Errorf("%w: fragmented message", ErrUnsupportedFrame)
		}
		payload, err := io.ReadAll(c.reader)
		if err != nil {
			return protocol.Message{}, err
		}
		return protocol.Decode(payload)
	}
}

// Write implements chat.Conn.
// Writes the frame as one binary WebSocket message.
func (c *ServerConn) Write(ctx context.Context, msg protocol.Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return wsutil.WriteServerBinary(c.conn, msg.Frame())
}

// Close implements chat.Conn.
func (c *ServerConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *ServerConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
