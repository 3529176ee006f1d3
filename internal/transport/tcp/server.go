package tcp

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/omochice/framed-chat/internal/chat"
)

// Accept failures are retried after a pause that doubles up to maxAcceptDelay.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// ErrServerStopped is returned by Serve once Stop has been called.
var ErrServerStopped = errors.New("tcp: server stopped")

// Server accepts TCP connections and hands each one to a handler.
type Server struct {
	address  string
	listener net.Listener
	handle   func(chat.Conn)
	quit     chan struct{}
	stopOnce sync.Once
}

// New creates a TCP server that passes accepted connections to handle.
func New(address string, handle func(chat.Conn)) *Server {
	return &Server{
		address: address,
		handle:  handle,
		quit:    make(chan struct{}),
	}
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	s.listener = listener
	log.Printf("TCP server started on %s", listener.Addr().String())
	return nil
}

// Serve runs the accept loop until Stop is called or the listener fails
// permanently. A failed accept does not end the loop; repeated failures back
// off so a persistent error such as EMFILE does not spin.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("tcp: Serve called before Listen")
	}
	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return ErrServerStopped
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("TCP listener closed: %w", err)
			}

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			log.Printf("Failed to accept TCP connection: %v; retrying in %v", err, delay)
			select {
			case <-s.quit:
				return ErrServerStopped
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		s.handle(NewConn(conn))
	}
}

// Start binds and serves.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop stops accepting connections. Already accepted connections belong to
// the handler.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
	})
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
