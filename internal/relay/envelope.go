package relay

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers. The layout is wire compatible with
//
//	message Envelope {
//	  string origin = 1;
//	  bytes frame = 2;
//	}
const (
	originField protowire.Number = 1
	frameField  protowire.Number = 2
)

// ErrBadEnvelope is returned for payloads that are not a relay envelope.
var ErrBadEnvelope = errors.New("relay: malformed envelope")

// Envelope is what travels on the relay subject: one encoded frame and the
// id of the process that published it.
type Envelope struct {
	Origin string
	Frame  []byte
}

// Marshal encodes e in protobuf wire format.
func (e Envelope) Marshal() []byte {
	b := make([]byte, 0, len(e.Origin)+len(e.Frame)+8)
	b = protowire.AppendTag(b, originField, protowire.BytesType)
	b = protowire.AppendString(b, e.Origin)
	b = protowire.AppendTag(b, frameField, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Frame)
	return b
}

// UnmarshalEnvelope decodes b. Unknown fields are skipped; a missing origin
// is an error.
func UnmarshalEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Envelope{}, fmt.Errorf("%w: %w", ErrBadEnvelope, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == originField && typ == protowire.BytesType:
			var v string
			v, n = protowire.ConsumeString(b)
			e.Origin = v
		case num == frameField && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			e.Frame = append([]byte(nil), v...)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return Envelope{}, fmt.Errorf("%w: field %d: %w", ErrBadEnvelope, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	if e.Origin == "" {
		return Envelope{}, fmt.Errorf("%w: missing origin", ErrBadEnvelope)
	}
	return e, nil
}
