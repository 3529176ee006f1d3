package tcp_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/omochice/framed-chat/internal/chat"
	"github.com/omochice/framed-chat/internal/transport/tcp"
	"github.com/omochice/framed-chat/pkg/protocol"
)

func TestConn_ImplementsInterface(t *testing.T) {
	var _ chat.Conn = (*tcp.Conn)(nil)
}

func TestConn_Read(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client)

	go func() {
		// Split a frame across writes; the reader must reassemble it.
		server.Write([]byte("  1"))
		server.Write([]byte("2test "))
		server.Write([]byte("message"))
		server.Close()
	}()

	msg, err := conn.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.String() != "test message" {
		t.Errorf("Read() = %q, want %q", msg.String(), "test message")
	}

	if _, err := conn.Read(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Read() after close error = %v, want io.EOF", err)
	}
}

func TestConn_ReadInvalidHeader(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client)

	go func() {
		server.Write([]byte(" 600"))
	}()

	if _, err := conn.Read(context.Background()); !errors.Is(err, protocol.ErrInvalidHeader) {
		t.Errorf("Read() error = %v, want ErrInvalidHeader", err)
	}
}

func TestConn_Write(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client)

	go func() {
		err := conn.Write(context.Background(), protocol.ClampString("hello"))
		if err != nil {
			t.Errorf("Write() error = %v", err)
		}
	}()

	buf := make([]byte, 9)
	if _, err := io.ReadFull(server, buf); err != nil {
		t.Fatalf("server read error: %v", err)
	}
	if string(buf) != "   5hello" {
		t.Errorf("server received %q, want %q", string(buf), "   5hello")
	}
}

func TestConn_Close(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	conn := tcp.NewConn(client)

	err := conn.Close()
	if err != nil {
		t.Errorf("Close() error = %v", err)
	}

	_, err = client.Read(make([]byte, 1))
	if err == nil {
		t.Error("expected error after close, got nil")
	}
}

func TestConn_RemoteAddr(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client)

	addr := conn.RemoteAddr()
	if addr == "" {
		t.Error("RemoteAddr() returned empty string")
	}
}
