package protocol

import "errors"

var (
	// ErrInvalidHeader is returned when a header does not hold a decimal
	// length within [0, MaxBodySize]. A connection that sees it is terminated.
	ErrInvalidHeader = errors.New("protocol: invalid frame header")

	// ErrBodyTooLarge is returned when a body exceeds MaxBodySize.
	ErrBodyTooLarge = errors.New("protocol: body exceeds maximum size")
)
