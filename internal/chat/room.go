package chat

import (
	"fmt"
	"sync"

	"github.com/omochice/framed-chat/internal/chat/history"
	"github.com/omochice/framed-chat/pkg/protocol"
)

// DefaultHistorySize is the number of recent messages replayed to newcomers.
const DefaultHistorySize = 100

// Member is anything the Room can deliver a message to.
// *Connection satisfies it.
type Member interface {
	Send(msg protocol.Message)
}

// RoomOption configures a Room.
type RoomOption func(c *roomConfig) error

type roomConfig struct {
	historySize int
}

// WithHistorySize overrides DefaultHistorySize.
func WithHistorySize(n int) RoomOption {
	return func(c *roomConfig) error {
		if n <= 0 {
			return fmt.Errorf("chat.WithHistorySize: invalid size (%d)", n)
		}
		c.historySize = n
		return nil
	}
}

// Room manages all joined members, broadcasts messages, and replays recent
// history to newcomers. Both TCP and WebSocket servers share a single Room.
//
// Join, Leave and Deliver are serialized by one lock.
type Room struct {
	mu      sync.Mutex
	members map[Member]struct{}
	history *history.Buffer
}

// NewRoom creates a new Room.
func NewRoom(opts ...RoomOption) (*Room, error) {
	cfg := roomConfig{historySize: DefaultHistorySize}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	buf, err := history.NewBuffer(cfg.historySize)
	if err != nil {
		return nil, err
	}
	return &Room{
		members: make(map[Member]struct{}),
		history: buf,
	}, nil
}

// Join adds m to the room and sends it the history, oldest first.
// Joining twice is a no-op and reports false.
func (r *Room) Join(m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m]; ok {
		return false
	}
	r.members[m] = struct{}{}
	r.history.Each(m.Send)
	return true
}

// Leave removes m from the room. It reports whether m was a member.
func (r *Room) Leave(m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m]; !ok {
		return false
	}
	delete(r.members, m)
	return true
}

// Deliver records msg in history and sends it to every member,
// including the one it came from.
func (r *Room) Deliver(msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history.Push(msg)
	for m := range r.members {
		m.Send(msg)
	}
}

// MemberCount returns number of joined members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// History returns a copy of the recent messages, oldest first.
func (r *Room) History() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Snapshot()
}
