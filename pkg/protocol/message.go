// Package protocol implements the framing used on every chat connection.
//
// A frame is a 4-byte ASCII decimal header holding the body length,
// right-justified and space padded, followed by exactly that many body bytes:
//
//	"   5hello"
package protocol

import (
	"fmt"
	"io"
)

const (
	// HeaderSize is the fixed width of the length header.
	HeaderSize = 4
	// MaxBodySize is the largest body a frame may carry.
	MaxBodySize = 512
)

// Message is an immutable frame body of at most MaxBodySize bytes.
type Message struct {
	body []byte
}

// NewMessage copies body into a Message.
// It fails with ErrBodyTooLarge if body exceeds MaxBodySize.
func NewMessage(body []byte) (Message, error) {
	if len(body) > MaxBodySize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}
	return Message{body: clone(body)}, nil
}

// Clamp builds a Message from the first MaxBodySize bytes of body.
func Clamp(body []byte) Message {
	if len(body) > MaxBodySize {
		body = body[:MaxBodySize]
	}
	return Message{body: clone(body)}
}

// ClampString is Clamp for text input.
func ClampString(s string) Message {
	return Clamp([]byte(s))
}

// Body returns a copy of the message body.
func (m Message) Body() []byte {
	return clone(m.body)
}

// Len returns the body length.
func (m Message) Len() int {
	return len(m.body)
}

// String returns the body as text.
func (m Message) String() string {
	return string(m.body)
}

// Frame returns the encoded header followed by the body.
func (m Message) Frame() []byte {
	// Message bodies are bounded at construction, so encoding cannot fail.
	frame, _ := Encode(m.body)
	return frame
}

// Encode writes the frame for body. It does not truncate: callers clamp
// oversized input before encoding.
func Encode(body []byte) ([]byte, error) {
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}
	frame := make([]byte, HeaderSize+len(body))
	encodeHeader(frame[:HeaderSize], len(body))
	copy(frame[HeaderSize:], body)
	return frame, nil
}

// encodeHeader renders n right-justified into dst, padding with spaces.
func encodeHeader(dst []byte, n int) {
	for i := range dst {
		dst[i] = ' '
	}
	i := len(dst) - 1
	for {
		dst[i] = byte('0' + n%10)
		n /= 10
		if n == 0 || i == 0 {
			return
		}
		i--
	}
}

// DecodeHeader parses a header and returns the body length it announces.
// Leading spaces are allowed; anything else that is not a decimal digit,
// and any value above MaxBodySize, yields ErrInvalidHeader.
func DecodeHeader(header []byte) (int, error) {
	if len(header) != HeaderSize {
		return 0, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(header))
	}
	i := 0
	for i < len(header) && header[i] == ' ' {
		i++
	}
	if i == len(header) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
	}
	n := 0
	for _, b := range header[i:] {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
		}
		n = n*10 + int(b-'0')
	}
	if n > MaxBodySize {
		return 0, fmt.Errorf("%w: length %d exceeds %d", ErrInvalidHeader, n, MaxBodySize)
	}
	return n, nil
}

// Decode parses one complete frame. Trailing bytes beyond the announced
// body length are rejected.
func Decode(frame []byte) (Message, error) {
	if len(frame) < HeaderSize {
		return Message{}, fmt.Errorf("%w: short frame of %d bytes", ErrInvalidHeader, len(frame))
	}
	n, err := DecodeHeader(frame[:HeaderSize])
	if err != nil {
		return Message{}, err
	}
	if len(frame)-HeaderSize != n {
		return Message{}, fmt.Errorf("%w: header announces %d bytes, frame carries %d", ErrInvalidHeader, n, len(frame)-HeaderSize)
	}
	return Message{body: clone(frame[HeaderSize:])}, nil
}

// ReadMessage reads exactly one frame from r: the header first, then the body.
func ReadMessage(r io.Reader) (Message, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, fmt.Errorf("read header: %w", err)
	}
	n, err := DecodeHeader(header[:])
	if err != nil {
		return Message{}, err
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, fmt.Errorf("read body: %w", err)
	}
	return Message{body: body}, nil
}

// WriteMessage writes m to w as a single frame.
func WriteMessage(w io.Writer, m Message) error {
	if _, err := w.Write(m.Frame()); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
