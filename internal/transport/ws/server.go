package ws

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/omochice/framed-chat/internal/chat"
)

// DefaultPath is the HTTP path upgraded to WebSocket.
const DefaultPath = "/ws"

// ErrServerStopped is returned by Serve once Stop has been called.
var ErrServerStopped = errors.New("ws: server stopped")

// Server upgrades HTTP requests to WebSocket and hands each connection to a
// handler.
type Server struct {
	address  string
	path     string
	listener net.Listener
	server   *http.Server
	handle   func(chat.Conn)
	stopOnce sync.Once
}

// New creates a WebSocket server upgrading requests on path.
func New(address, path string, handle func(chat.Conn)) *Server {
	if path == "" {
		path = DefaultPath
	}
	s := &Server{
		address: address,
		path:    path,
		handle:  handle,
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleWebSocket)
	s.server = &http.Server{Handler: mux}
	return s
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start WebSocket server: %w", err)
	}
	s.listener = listener
	log.Printf("WebSocket server started on %s%s", listener.Addr().String(), s.path)
	return nil
}

// Serve accepts HTTP connections until Stop is called.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("ws: Serve called before Listen")
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("WebSocket server error: %w", err)
	}
	return ErrServerStopped
}

// Start binds and serves.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop stops the WebSocket server. Upgraded connections belong to the
// handler and are not closed here.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.server.Close()
	})
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// URL returns the ws:// URL clients dial.
func (s *Server) URL() string {
	return "ws://" + s.Addr() + s.path
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, rw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("Failed to upgrade connection from %s: %v", r.RemoteAddr, err)
		return
	}

	var reader io.Reader = conn
	if rw != nil {
		reader = rw.Reader
	}
	s.handle(NewServerConn(conn, reader))
}
