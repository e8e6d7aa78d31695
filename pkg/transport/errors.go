package transport

import "errors"

// Transport errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed transport.
	ErrClosed = errors.New("transport: closed")

	// ErrInvalidAddress is returned when a destination is not a MAC-48 address.
	ErrInvalidAddress = errors.New("transport: invalid address")

	// ErrNoHandler is returned when no frame handler is configured.
	ErrNoHandler = errors.New("transport: no frame handler configured")

	// ErrNoConn is returned when no link is configured.
	ErrNoConn = errors.New("transport: no link configured")

	// ErrAlreadyStarted is returned when Start is called on a running port.
	ErrAlreadyStarted = errors.New("transport: already started")

	// ErrFrameTooLarge is returned when a frame exceeds the Ethernet maximum.
	ErrFrameTooLarge = errors.New("transport: frame too large")

	// ErrUnsupported is returned on platforms without raw packet sockets.
	ErrUnsupported = errors.New("transport: raw packet sockets not supported on this platform")
)
