// Package relay fans chat messages out between server processes over NATS.
//
// Each frame is published inside an Envelope tagged with the publishing
// process id. A subscriber drops envelopes carrying its own id and validates
// the frame with the same codec as a socket reader.
package relay

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/omochice/framed-chat/pkg/protocol"
)

// DefaultSubject is the NATS subject rooms publish to.
const DefaultSubject = "framed-chat.room"

// ErrClosed is returned by operations on a closed relay.
var ErrClosed = errors.New("relay: closed")

// NATS publishes and receives room messages on one subject.
type NATS struct {
	conn    *nats.Conn
	subject string
	origin  string

	mu     sync.Mutex
	sub    *nats.Subscription
	closed bool
}

// Dial connects to the NATS server at url. The connection never receives
// its own publications.
func Dial(url, subject string) (*NATS, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("framed-chat"),
		nats.NoEcho(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("Relay disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("Relay reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay %s: %w", url, err)
	}
	return &NATS{conn: conn, subject: subject, origin: uuid.NewString()}, nil
}

// Subject returns the subject in use.
func (r *NATS) Subject() string {
	return r.subject
}

// Origin returns the id stamped on every envelope this relay publishes.
func (r *NATS) Origin() string {
	return r.origin
}

// Publish sends msg to every other subscribed process.
func (r *NATS) Publish(msg protocol.Message) error {
	env := Envelope{Origin: r.origin, Frame: msg.Frame()}
	if err := r.conn.Publish(r.subject, env.Marshal()); err != nil {
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Subscribe calls fn for every valid frame published by other processes.
// Invalid envelopes or frames are logged and dropped, and so are envelopes
// that originated here.
func (r *NATS) Subscribe(fn func(protocol.Message)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.sub != nil {
		return errors.New("relay: already subscribed")
	}
	sub, err := r.conn.Subscribe(r.subject, func(m *nats.Msg) {
		env, err := UnmarshalEnvelope(m.Data)
		if err != nil {
			log.Printf("Dropping relayed payload: %v", err)
			return
		}
		if env.Origin == r.origin {
			return
		}
		msg, err := protocol.Decode(env.Frame)
		if err != nil {
			log.Printf("Dropping relayed frame from %s: %v", env.Origin, err)
			return
		}
		fn(msg)
	})
	if err != nil {
		return fmt.Errorf("relay subscribe %s: %w", r.subject, err)
	}
	if err := r.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("relay subscribe %s: %w", r.subject, err)
	}
	r.sub = sub
	return nil
}

// Close drains the subscription and closes the connection.
func (r *NATS) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.conn.Drain(); err != nil {
		r.conn.Close()
		return fmt.Errorf("relay drain: %w", err)
	}
	return nil
}
