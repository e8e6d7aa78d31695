package pdu

import "errors"

// Decode errors. A frame that fails to decode is dropped without a response.
var (
	// ErrMalformedHeader is returned when the EtherType, FrameID or
	// DataLength field is inconsistent.
	ErrMalformedHeader = errors.New("pdu: malformed header")

	// ErrMalformedBlock is returned when a block header or BlockLength
	// overruns the remaining DataLength.
	ErrMalformedBlock = errors.New("pdu: malformed block")

	// ErrTruncatedFrame is returned when fewer bytes are present than the
	// fixed header or DataLength requires.
	ErrTruncatedFrame = errors.New("pdu: truncated frame")
)
