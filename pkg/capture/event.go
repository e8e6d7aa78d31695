// Package capture records DCP frames to a CBOR event log.
//
// Every frame the responder receives or sends can be written as an Event.
// The log is a plain concatenation of CBOR items and can be streamed back
// with a Reader.
package capture

import (
	"net"
	"time"
)

// Direction indicates frame flow relative to the device.
type Direction uint8

const (
	// DirectionIn is a received frame.
	DirectionIn Direction = 0
	// DirectionOut is a sent frame.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Event is one captured frame.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`

	// Peer is the remote station: the source of a received frame or the
	// destination of a sent one.
	Peer string `cbor:"3,keyasint,omitempty"`

	// Frame is the raw Ethernet frame.
	Frame []byte `cbor:"4,keyasint"`

	// Xid is the transaction ID when the frame decoded.
	Xid uint32 `cbor:"5,keyasint,omitempty"`

	// Note carries the drop reason or decode error for received frames
	// that were not answered.
	Note string `cbor:"6,keyasint,omitempty"`
}

// Logger receives capture events.
type Logger interface {
	Log(event Event)
}

// NewEvent builds an event stamped with the current time.
func NewEvent(dir Direction, peer net.HardwareAddr, frame []byte) Event {
	e := Event{
		Timestamp: time.Now(),
		Direction: dir,
		Frame:     append([]byte(nil), frame...),
	}
	if peer != nil {
		e.Peer = peer.String()
	}
	return e
}
