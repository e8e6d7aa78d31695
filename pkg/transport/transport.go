// Package transport moves raw Ethernet frames between the DCP responder
// and a link.
//
// A Port owns a frame-oriented link (a Linux packet socket or one end of an
// in-memory Pipe), reads DCP frames from it in a background goroutine and
// sends frames on it. Frames with any other EtherType are discarded.
package transport

import (
	"io"
	"net"

	"github.com/backkem/dcp/pkg/pdu"
)

// Sender emits one raw Ethernet frame. dst is the destination MAC already
// encoded in frame; transports may use it for addressing or logging.
type Sender interface {
	Send(frame []byte, dst net.HardwareAddr) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(frame []byte, dst net.HardwareAddr) error

// Send calls f.
func (f SenderFunc) Send(frame []byte, dst net.HardwareAddr) error { return f(frame, dst) }

// FrameHandler is called for each received DCP frame. The slice is owned
// by the handler.
type FrameHandler func(frame []byte)

// Link is a frame-oriented connection: each Read returns one frame and
// each Write sends one.
type Link = io.ReadWriteCloser

// MaxFrameSize is the largest frame a Port reads or writes: a maximum
// Ethernet frame plus one VLAN tag.
const MaxFrameSize = pdu.MaxFrameSize + pdu.VLANTagSize
