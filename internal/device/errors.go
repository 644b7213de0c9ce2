package device

import "errors"

// Errors returned by the public Device surface. Callers match them with
// errors.Is; returned values may wrap these with call-site detail.
var (
	// ErrInvalidEndpoint indicates the bind and remote addresses do not
	// share an address family.
	ErrInvalidEndpoint = errors.New("bind and remote address families differ")

	// ErrConnectionFailed indicates the active-side handshake exhausted
	// its attempts without a reply.
	ErrConnectionFailed = errors.New("connection handshake failed")

	// ErrNotConnected indicates a send was attempted before a remote peer
	// was bound.
	ErrNotConnected = errors.New("device is not connected")

	// ErrMessageTooLarge indicates a payload exceeded the message cap.
	ErrMessageTooLarge = errors.New("message payload too large")

	// ErrAlreadyRegistered indicates a second handler registration for a
	// message type that already has one.
	ErrAlreadyRegistered = errors.New("handler already registered for message type")

	// ErrTimeout indicates a reliable send exhausted its attempts without
	// an ack, or was cut short by Close.
	ErrTimeout = errors.New("reliable send timed out")
)
