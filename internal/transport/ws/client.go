package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/omochice/framed-chat/pkg/protocol"
)

// ClientConn adapts a gorilla/websocket client connection to chat.Conn
// interface.
type ClientConn struct {
	conn *websocket.Conn
}

// Dial opens a WebSocket connection to url, e.g. "ws://127.0.0.1:8081/ws".
func Dial(ctx context.Context, url string) (*ClientConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	conn.SetReadLimit(maxPayload)
	return &ClientConn{conn: conn}, nil
}

// Read implements chat.Conn.
func (c *ClientConn) Read(ctx context.Context) (protocol.Message, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.Message{}, err
	}
	if messageType != websocket.BinaryMessage {
		return protocol.Message{}, fmt.Errorf("%w: message type %d", ErrUnsupportedFrame, messageType)
	}
	return protocol.Decode(data)
}

// Write implements chat.Conn.
func (c *ClientConn) Write(ctx context.Context, msg protocol.Message) error {
	return c.conn.WriteMessage(websocket.BinaryMessage, msg.Frame())
}

// Close implements chat.Conn.
// Sends a close frame before closing the socket.
func (c *ClientConn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *ClientConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
