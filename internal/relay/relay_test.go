package relay_test

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/omochice/framed-chat/internal/relay"
	"github.com/omochice/framed-chat/pkg/protocol"
)

func runServer(t *testing.T) *server.Server {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	t.Cleanup(s.Shutdown)
	return s
}

func dial(t *testing.T, url string) *relay.NATS {
	t.Helper()
	r, err := relay.Dial(url, "")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestNATS_PublishReachesOtherProcesses(t *testing.T) {
	s := runServer(t)
	a := dial(t, s.ClientURL())
	b := dial(t, s.ClientURL())

	if a.Subject() != relay.DefaultSubject {
		t.Errorf("Subject() = %q, want %q", a.Subject(), relay.DefaultSubject)
	}

	fromA := make(chan string, 1)
	fromB := make(chan string, 1)
	if err := a.Subscribe(func(m protocol.Message) { fromB <- m.String() }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := b.Subscribe(func(m protocol.Message) { fromA <- m.String() }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := a.Subscribe(func(protocol.Message) {}); err == nil {
		t.Error("second Subscribe() expected error")
	}

	if err := a.Publish(protocol.ClampString("[now] Client: hi")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-fromA:
		if got != "[now] Client: hi" {
			t.Errorf("relayed = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not relayed")
	}

	select {
	case got := <-fromB:
		t.Errorf("publisher received its own message %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATS_DropsInvalidFrames(t *testing.T) {
	s := runServer(t)
	r := dial(t, s.ClientURL())

	got := make(chan string, 2)
	if err := r.Subscribe(func(m protocol.Message) { got <- m.String() }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	raw, err := nats.Connect(s.ClientURL())
	if err != nil {
		t.Fatalf("nats.Connect() error = %v", err)
	}
	defer raw.Close()

	raw.Publish(relay.DefaultSubject, []byte("garbage"))
	raw.Publish(relay.DefaultSubject, []byte("   2ok"))
	raw.Publish(relay.DefaultSubject, relay.Envelope{Origin: "elsewhere", Frame: []byte("9999")}.Marshal())
	raw.Publish(relay.DefaultSubject, relay.Envelope{Origin: "elsewhere", Frame: []byte("   2ok")}.Marshal())
	raw.Flush()

	select {
	case m := <-got:
		if m != "ok" {
			t.Errorf("first delivered message = %q, want %q", m, "ok")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("valid frame not delivered")
	}
}

func TestNATS_DropsOwnEnvelopes(t *testing.T) {
	s := runServer(t)
	a := dial(t, s.ClientURL())

	got := make(chan string, 2)
	if err := a.Subscribe(func(m protocol.Message) { got <- m.String() }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	raw, err := nats.Connect(s.ClientURL())
	if err != nil {
		t.Fatalf("nats.Connect() error = %v", err)
	}
	defer raw.Close()

	// A loop elsewhere hands a's own envelope back to it.
	looped := relay.Envelope{Origin: a.Origin(), Frame: protocol.ClampString("mine").Frame()}
	raw.Publish(relay.DefaultSubject, looped.Marshal())
	raw.Publish(relay.DefaultSubject, relay.Envelope{Origin: "elsewhere", Frame: protocol.ClampString("theirs").Frame()}.Marshal())
	raw.Flush()

	select {
	case m := <-got:
		if m != "theirs" {
			t.Errorf("delivered %q, want %q", m, "theirs")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("foreign envelope not delivered")
	}
	select {
	case m := <-got:
		t.Errorf("unexpected delivery %q", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATS_PublishesEnvelopes(t *testing.T) {
	s := runServer(t)
	a := dial(t, s.ClientURL())

	raw, err := nats.Connect(s.ClientURL())
	if err != nil {
		t.Fatalf("nats.Connect() error = %v", err)
	}
	defer raw.Close()
	sub, err := raw.SubscribeSync(relay.DefaultSubject)
	if err != nil {
		t.Fatalf("SubscribeSync() error = %v", err)
	}
	raw.Flush()

	if err := a.Publish(protocol.ClampString("hi")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	m, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg() error = %v", err)
	}
	env, err := relay.UnmarshalEnvelope(m.Data)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope() error = %v", err)
	}
	if env.Origin != a.Origin() {
		t.Errorf("Origin = %q, want %q", env.Origin, a.Origin())
	}
	if string(env.Frame) != "   2hi" {
		t.Errorf("Frame = %q, want %q", env.Frame, "   2hi")
	}
}

func TestNATS_Close(t *testing.T) {
	s := runServer(t)
	r, err := relay.Dial(s.ClientURL(), "custom.subject")
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := r.Subscribe(func(protocol.Message) {}); err != relay.ErrClosed {
		t.Errorf("Subscribe() after Close error = %v, want ErrClosed", err)
	}
}

func TestDial_Unreachable(t *testing.T) {
	if _, err := relay.Dial("nats://127.0.0.1:1", ""); err == nil {
		t.Error("expected error dialing an unreachable relay")
	}
}
