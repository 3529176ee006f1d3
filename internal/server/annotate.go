package server

import (
	"time"

	"github.com/omochice/framed-chat/pkg/protocol"
)

// ClientLabel names the author of every rebroadcast message.
const ClientLabel = "Client"

// Annotate prefixes msg with a timestamp and the client label, e.g.
// "[Mon Jan  2 15:04:05 2006] Client: hello". The result is clamped to
// protocol.MaxBodySize.
func Annotate(at time.Time, msg protocol.Message) protocol.Message {
	return protocol.ClampString("[" + at.Format(time.ANSIC) + "] " + ClientLabel + ": " + msg.String())
}
