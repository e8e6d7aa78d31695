package pdu

import (
	"net"

	"github.com/backkem/dcp/pkg/block"
)

// NewFilterBlock builds an Identify filter block: the raw value without
// qualifier or info prefix.
func NewFilterBlock(key block.Key, value []byte) Block {
	return Block{Key: key, Data: append([]byte(nil), value...)}
}

// NewIdentifyRequest builds a multicast Identify request. With no filters
// the request carries the All selector.
func NewIdentifyRequest(src net.HardwareAddr, xid uint32, delayFactor uint16, filters ...Block) *Frame {
	if len(filters) == 0 {
		filters = []Block{{Key: block.KeyAll}}
	}
	return &Frame{
		Destination: IdentifyMulticast,
		Source:      src,
		FrameID:     FrameIDIdentifyRequest,
		Header: Header{
			ServiceID:     ServiceIdentify,
			ServiceType:   ServiceTypeRequest,
			Xid:           xid,
			ResponseDelay: delayFactor,
		},
		Blocks: filters,
	}
}

// NewGetRequest builds a unicast Get request for the given keys.
func NewGetRequest(dst, src net.HardwareAddr, xid uint32, keys ...block.Key) *Frame {
	blocks := make([]Block, len(keys))
	for i, k := range keys {
		blocks[i] = Block{Key: k}
	}
	return &Frame{
		Destination: dst,
		Source:      src,
		FrameID:     FrameIDGetSet,
		Header:      Header{ServiceID: ServiceGet, ServiceType: ServiceTypeRequest, Xid: xid},
		Blocks:      blocks,
	}
}

// NewSetRequest builds a unicast Set request. Blocks are usually built
// with NewSetBlock.
func NewSetRequest(dst, src net.HardwareAddr, xid uint32, blocks ...Block) *Frame {
	return &Frame{
		Destination: dst,
		Source:      src,
		FrameID:     FrameIDGetSet,
		Header:      Header{ServiceID: ServiceSet, ServiceType: ServiceTypeRequest, Xid: xid},
		Blocks:      blocks,
	}
}

// NewResponse builds the response to req sent from src. Identify requests
// are answered with the Identify response FrameID; everything else keeps
// the request FrameID.
func NewResponse(req *Frame, src net.HardwareAddr, st ServiceType, blocks []Block) *Frame {
	id := req.FrameID
	if id == FrameIDIdentifyRequest {
		id = FrameIDIdentifyResponse
	}
	return &Frame{
		Destination: req.Source,
		Source:      src,
		FrameID:     id,
		Header: Header{
			ServiceID:   req.Header.ServiceID,
			ServiceType: st,
			Xid:         req.Header.Xid,
		},
		Blocks: blocks,
	}
}

// NewHello builds a multicast Hello request announcing the given blocks.
func NewHello(src net.HardwareAddr, xid uint32, blocks []Block) *Frame {
	return &Frame{
		Destination: HelloMulticast,
		Source:      src,
		FrameID:     FrameIDHello,
		Header:      Header{ServiceID: ServiceHello, ServiceType: ServiceTypeRequest, Xid: xid},
		Blocks:      blocks,
	}
}
