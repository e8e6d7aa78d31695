// Package pdu implements DCP frame encoding and decoding.
//
// A DCP frame is an Ethernet II frame with EtherType 0x8892 whose payload
// starts with a 2-byte FrameID, followed by the DCP header and a list of
// blocks:
//
//	dst(6) src(6) [0x8100 TCI(2)] 0x8892 FrameID(2)
//	ServiceID(1) ServiceType(1) Xid(4) ResponseDelay(2) DataLength(2)
//	blocks...
//
// All multi-byte fields are big-endian on the wire. Blocks are
// Option(1) Suboption(1) BlockLength(2) Data, padded to an even length.
// Get requests are the exception: their blocks are bare Option/Suboption
// pairs.
package pdu

import (
	"fmt"
	"net"
)

// Ethernet and DCP framing constants.
const (
	// EtherType is the protocol discriminator of the DCP protocol family.
	EtherType uint16 = 0x8892

	// EtherTypeVLAN is the 802.1Q tag protocol identifier.
	EtherTypeVLAN uint16 = 0x8100

	// EthernetHeaderSize is dst + src + EtherType.
	EthernetHeaderSize = 14

	// VLANTagSize is TPID + TCI.
	VLANTagSize = 4

	// FrameIDSize is the size of the FrameID that precedes the DCP header.
	FrameIDSize = 2

	// HeaderSize is ServiceID + ServiceType + Xid + ResponseDelay + DataLength.
	HeaderSize = 10

	// BlockHeaderSize is Option + Suboption + BlockLength.
	BlockHeaderSize = 4

	// MinFrameSize is the minimum Ethernet frame size without FCS.
	// Shorter frames are zero-padded.
	MinFrameSize = 60

	// MaxFrameSize is the maximum untagged Ethernet frame size without FCS.
	MaxFrameSize = 1514

	// MaxDataLength is the largest block list that fits in one frame.
	MaxDataLength = MaxFrameSize - EthernetHeaderSize - FrameIDSize - HeaderSize
)

// Multicast destinations.
var (
	// IdentifyMulticast is the destination of Identify All requests.
	IdentifyMulticast = net.HardwareAddr{0x01, 0x0e, 0xcf, 0x00, 0x00, 0x00}

	// HelloMulticast is the destination of Hello requests.
	HelloMulticast = net.HardwareAddr{0x01, 0x0e, 0xcf, 0x00, 0x00, 0x01}

	// Broadcast is the Ethernet broadcast address.
	Broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

// FrameID identifies the DCP frame class.
type FrameID uint16

const (
	FrameIDHello            FrameID = 0xfefc
	FrameIDGetSet           FrameID = 0xfefd
	FrameIDIdentifyRequest  FrameID = 0xfefe
	FrameIDIdentifyResponse FrameID = 0xfeff
)

// String returns a human-readable name for the frame id.
func (f FrameID) String() string {
	switch f {
	case FrameIDHello:
		return "Hello"
	case FrameIDGetSet:
		return "GetSet"
	case FrameIDIdentifyRequest:
		return "IdentifyRequest"
	case FrameIDIdentifyResponse:
		return "IdentifyResponse"
	default:
		return fmt.Sprintf("FrameID(0x%04x)", uint16(f))
	}
}

// IsValid returns true if the frame id belongs to DCP.
func (f FrameID) IsValid() bool {
	return f >= FrameIDHello && f <= FrameIDIdentifyResponse
}

// ServiceID identifies the DCP service.
type ServiceID uint8

const (
	ServiceGet      ServiceID = 0x03
	ServiceSet      ServiceID = 0x04
	ServiceIdentify ServiceID = 0x05
	ServiceHello    ServiceID = 0x06
)

// String returns a human-readable name for the service.
func (s ServiceID) String() string {
	switch s {
	case ServiceGet:
		return "Get"
	case ServiceSet:
		return "Set"
	case ServiceIdentify:
		return "Identify"
	case ServiceHello:
		return "Hello"
	default:
		return fmt.Sprintf("Service(0x%02x)", uint8(s))
	}
}

// ServiceType distinguishes requests from the kinds of response.
type ServiceType uint8

const (
	ServiceTypeRequest             ServiceType = 0x00
	ServiceTypeSuccess             ServiceType = 0x01
	ServiceTypeResponseUnsupported ServiceType = 0x05
)

// String returns a human-readable name for the service type.
func (t ServiceType) String() string {
	switch t {
	case ServiceTypeRequest:
		return "Request"
	case ServiceTypeSuccess:
		return "Success"
	case ServiceTypeResponseUnsupported:
		return "ResponseUnsupported"
	default:
		return fmt.Sprintf("ServiceType(0x%02x)", uint8(t))
	}
}
