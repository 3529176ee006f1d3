// Package chat provides the core chat domain logic shared by all transports.
package chat

import (
	"context"

	"github.com/omochice/framed-chat/pkg/protocol"
)

// Conn abstracts a framed bidirectional connection for both TCP and WebSocket.
// This interface isolates transport details from chat logic.
//
// Implementations need not be safe for concurrent Reads or concurrent Writes;
// Connection never issues more than one of each at a time.
type Conn interface {
	// Read reads a single frame and returns its body.
	// Returns io.EOF when connection is closed.
	Read(ctx context.Context) (protocol.Message, error)

	// Write sends a single frame.
	Write(ctx context.Context, msg protocol.Message) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
