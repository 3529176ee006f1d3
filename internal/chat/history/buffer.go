// Package history keeps a bounded backlog of recent chat messages.
package history

import (
	"fmt"

	"github.com/omochice/framed-chat/pkg/protocol"
)

// Buffer accumulates a limited number of messages in arrival order.
// When the buffer is full, every push drops the oldest message.
//
// Buffer is not safe for concurrent use; the owner serializes access.
type Buffer struct {
	data  []protocol.Message
	start int
	size  int
}

// NewBuffer builds a buffer holding at most max messages.
func NewBuffer(max int) (*Buffer, error) {
	if max <= 0 {
		return nil, fmt.Errorf("history.NewBuffer: max (%d) must be greater than 0", max)
	}
	return &Buffer{data: make([]protocol.Message, max)}, nil
}

// Len returns the number of buffered messages.
func (b *Buffer) Len() int {
	return b.size
}

// Cap returns the maximum number of buffered messages.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Push appends msg, evicting the oldest message on overflow.
func (b *Buffer) Push(msg protocol.Message) {
	if b.size < len(b.data) {
		b.data[(b.start+b.size)%len(b.data)] = msg
		b.size++
		return
	}
	b.data[b.start] = msg
	b.start = (b.start + 1) % len(b.data)
}

// Each calls fn for every buffered message, oldest first.
func (b *Buffer) Each(fn func(protocol.Message)) {
	for i := 0; i < b.size; i++ {
		fn(b.data[(b.start+i)%len(b.data)])
	}
}

// Snapshot copies the buffered messages into a new slice, oldest first.
func (b *Buffer) Snapshot() []protocol.Message {
	out := make([]protocol.Message, 0, b.size)
	b.Each(func(msg protocol.Message) {
		out = append(out, msg)
	})
	return out
}
