package chat_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/omochice/framed-chat/internal/chat"
	"github.com/omochice/framed-chat/pkg/protocol"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	readCh     chan protocol.Message
	readErr    chan error
	writtenMu  sync.Mutex
	written    []protocol.Message
	writeErr   error
	writeGate  chan struct{}
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
	closeOnce  sync.Once
	closed     chan struct{}
	closeCalls atomic.Int32
	remoteAddr string
}

func newMockConn(addr string) *mockConn {
	return &mockConn{
		readCh:     make(chan protocol.Message, 10),
		readErr:    make(chan error, 1),
		closed:     make(chan struct{}),
		remoteAddr: addr,
	}
}

func (m *mockConn) Read(ctx context.Context) (protocol.Message, error) {
	select {
	case <-m.closed:
		return protocol.Message{}, io.EOF
	case err := <-m.readErr:
		return protocol.Message{}, err
	case msg := <-m.readCh:
		return msg, nil
	}
}

func (m *mockConn) Write(ctx context.Context, msg protocol.Message) error {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		max := m.maxFlight.Load()
		if n <= max || m.maxFlight.CompareAndSwap(max, n) {
			break
		}
	}

	if m.writeGate != nil {
		select {
		case <-m.writeGate:
		case <-m.closed:
			return io.ErrClosedPipe
		}
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	m.written = append(m.written, msg)
	return nil
}

func (m *mockConn) Close() error {
	m.closeCalls.Add(1)
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return m.remoteAddr
}

func (m *mockConn) GetWritten() []string {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	out := make([]string, len(m.written))
	for i, msg := range m.written {
		out[i] = msg.String()
	}
	return out
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)

// recorder is a chat.Member that remembers what it was sent.
type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Send(msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg.String())
}

func (r *recorder) Received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

var _ chat.Member = (*recorder)(nil)
var _ chat.Member = (*chat.Connection)(nil)
