// Package server runs the chat room behind TCP and, optionally, WebSocket
// listeners.
package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/omochice/framed-chat/internal/chat"
	"github.com/omochice/framed-chat/internal/transport/tcp"
	"github.com/omochice/framed-chat/internal/transport/ws"
	"github.com/omochice/framed-chat/pkg/protocol"
)

// ErrServerStopped is returned by Serve after Stop.
var ErrServerStopped = errors.New("server stopped")

// Server accepts chat connections and joins each one to a single Room.
type Server struct {
	address   string
	wsAddress string
	wsPath    string
	roomOpts  []chat.RoomOption
	relay     Relay
	now       func() time.Time

	room *chat.Room
	tcp  *tcp.Server
	ws   *ws.Server

	mu       sync.Mutex
	conns    map[*chat.Connection]struct{}
	stopped  bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Server listening for framed TCP clients on address.
func New(address string, opts ...Option) (*Server, error) {
	s := &Server{
		address: address,
		now:     time.Now,
		conns:   make(map[*chat.Connection]struct{}),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	room, err := chat.NewRoom(s.roomOpts...)
	if err != nil {
		return nil, err
	}
	s.room = room
	s.tcp = tcp.New(address, s.handle)
	if s.wsAddress != "" {
		s.ws = ws.New(s.wsAddress, s.wsPath, s.handle)
	}
	return s, nil
}

// Listen binds every configured listener and subscribes to the relay.
func (s *Server) Listen() error {
	if err := s.tcp.Listen(); err != nil {
		return err
	}
	if s.ws != nil {
		if err := s.ws.Listen(); err != nil {
			s.tcp.Stop()
			return err
		}
	}
	if s.relay != nil {
		if err := s.relay.Subscribe(s.room.Deliver); err != nil {
			s.tcp.Stop()
			if s.ws != nil {
				s.ws.Stop()
			}
			return fmt.Errorf("failed to subscribe to relay: %w", err)
		}
	}
	return nil
}

// Serve accepts connections until Stop is called or a listener fails.
func (s *Server) Serve() error {
	errCh := make(chan error, 2)
	go func() {
		errCh <- s.tcp.Serve()
	}()
	if s.ws != nil {
		go func() {
			errCh <- s.ws.Serve()
		}()
	}

	err := <-errCh
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return ErrServerStopped
	}
	return err
}

// Start binds and serves.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop closes the listeners and every live connection, then waits for the
// connections to leave the room.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		conns := make([]*chat.Connection, 0, len(s.conns))
		for c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()

		s.tcp.Stop()
		if s.ws != nil {
			s.ws.Stop()
		}
		if s.relay != nil {
			if err := s.relay.Close(); err != nil {
				log.Printf("Failed to close relay: %v", err)
			}
		}
		for _, c := range conns {
			c.Close()
		}
	})
	s.wg.Wait()
}

// Addr returns the TCP listening address.
func (s *Server) Addr() string {
	return s.tcp.Addr()
}

// WebSocketURL returns the URL WebSocket clients dial, or "" when the
// WebSocket listener is disabled.
func (s *Server) WebSocketURL() string {
	if s.ws == nil {
		return ""
	}
	return s.ws.URL()
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	return s.room.MemberCount()
}

// Room returns the room shared by all connections.
func (s *Server) Room() *chat.Room {
	return s.room
}

// handle wires an accepted connection into the room and starts reading.
func (s *Server) handle(conn chat.Conn) {
	c := chat.NewConnection(conn, chat.Handler{
		OnMessage: s.onMessage,
		OnClose:   s.onClose,
	})

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	log.Printf("New client %s connected from %s", c.ID(), c.RemoteAddr())
	s.room.Join(c)
	if c.Err() != nil {
		// Closed by Stop before joining; OnClose already ran.
		s.room.Leave(c)
		return
	}
	c.Start()
}

func (s *Server) onMessage(c *chat.Connection, msg protocol.Message) {
	log.Printf("Message from client %s: %s", c.ID(), msg.String())
	annotated := Annotate(s.now(), msg)
	s.room.Deliver(annotated)
	if s.relay != nil {
		if err := s.relay.Publish(annotated); err != nil {
			log.Printf("Failed to relay message from client %s: %v", c.ID(), err)
		}
	}
}

func (s *Server) onClose(c *chat.Connection, err error) {
	s.room.Leave(c)

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, chat.ErrConnectionClosed):
		log.Printf("Client %s disconnected", c.ID())
	default:
		log.Printf("Client %s dropped: %v", c.ID(), err)
	}

	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}
