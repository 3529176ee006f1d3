package chat

import "errors"

// ErrConnectionClosed is the close cause reported when a Connection is
// closed by its owner rather than by an I/O or framing failure.
var ErrConnectionClosed = errors.New("chat: connection closed")
