package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/omochice/framed-chat/internal/chat"
	"github.com/omochice/framed-chat/pkg/protocol"
)

// Relay carries room messages to and from other server processes.
// *relay.NATS satisfies it.
type Relay interface {
	Publish(msg protocol.Message) error
	Subscribe(fn func(protocol.Message)) error
	Close() error
}

// Option configures a Server.
type Option func(s *Server) error

// WithWebSocket also accepts WebSocket clients on address, upgrading
// requests to path.
func WithWebSocket(address, path string) Option {
	return func(s *Server) error {
		if address == "" {
			return errors.New("server.WithWebSocket: empty address")
		}
		s.wsAddress = address
		s.wsPath = path
		return nil
	}
}

// WithRelay fans every annotated message out through r and delivers
// messages received from r to the local room.
func WithRelay(r Relay) Option {
	return func(s *Server) error {
		if r == nil {
			return errors.New("server.WithRelay: nil relay")
		}
		s.relay = r
		return nil
	}
}

// WithHistorySize overrides the number of messages replayed to newcomers.
func WithHistorySize(n int) Option {
	return func(s *Server) error {
		if n <= 0 {
			return fmt.Errorf("server.WithHistorySize: invalid size (%d)", n)
		}
		s.roomOpts = append(s.roomOpts, chat.WithHistorySize(n))
		return nil
	}
}

// WithClock replaces time.Now for annotation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) error {
		if now == nil {
			return errors.New("server.WithClock: nil clock")
		}
		s.now = now
		return nil
	}
}
