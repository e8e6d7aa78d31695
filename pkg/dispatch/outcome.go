package dispatch

import (
	"fmt"
	"net"

	"github.com/backkem/dcp/pkg/block"
	"github.com/backkem/dcp/pkg/pdu"
)

// Kind classifies the result of handling one frame.
type Kind uint8

const (
	// KindDrop means no response is sent.
	KindDrop Kind = iota

	// KindRespond means Response is sent immediately.
	KindRespond

	// KindDefer means Build is scheduled after a random delay derived
	// from DelayFactor.
	KindDefer

	// KindUnsupported means Response is a ResponseUnsupported frame.
	KindUnsupported
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDrop:
		return "Drop"
	case KindRespond:
		return "Respond"
	case KindDefer:
		return "Defer"
	case KindUnsupported:
		return "Unsupported"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Reason explains a dropped frame. Values are stable and used as metric
// labels.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNotAddressed   Reason = "not_addressed"
	ReasonNotUnicast     Reason = "not_unicast"
	ReasonForeignHello   Reason = "hello"
	ReasonResponse       Reason = "response"
	ReasonFilterMismatch Reason = "filter_mismatch"
	ReasonBadService     Reason = "bad_service"
)

// BlockResult is the outcome of one block of a Set request.
type BlockResult struct {
	Key  block.Key
	Code block.ErrorCode
}

// Outcome is the result of handling one frame.
type Outcome struct {
	Kind   Kind
	Reason Reason

	// Service is the service of the request.
	Service pdu.ServiceID

	// Response is set for KindRespond and KindUnsupported.
	Response *pdu.Frame

	// Build is set for KindDefer. It builds the response from the identity
	// at the time it is called.
	Build func() *pdu.Frame

	// Xid, Peer and DelayFactor are copied from the request.
	Xid         uint32
	Peer        net.HardwareAddr
	DelayFactor uint16

	// Announce is set after a successful directly addressed Get or Set.
	Announce bool

	// Results lists the per-block outcome of a Set request.
	Results []BlockResult

	// Signal is set when a Set request started a flash sequence.
	Signal bool
}

func drop(f *pdu.Frame, r Reason) Outcome {
	return Outcome{
		Kind:    KindDrop,
		Reason:  r,
		Service: f.Header.ServiceID,
		Xid:     f.Header.Xid,
		Peer:    f.Source,
	}
}
