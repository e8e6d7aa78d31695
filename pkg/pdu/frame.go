package pdu

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/backkem/dcp/pkg/block"
)

// Header is the DCP header that follows the FrameID.
// DataLength is not stored; it is computed from the block list on encode.
type Header struct {
	ServiceID   ServiceID
	ServiceType ServiceType

	// Xid correlates a request with its response.
	Xid uint32

	// ResponseDelay bounds the randomized Identify response delay.
	// Reserved (zero) in everything but Identify requests.
	ResponseDelay uint16
}

// EncodeTo writes the header into buf, which must be at least HeaderSize
// bytes long. Returns the number of bytes written.
func (h *Header) EncodeTo(buf []byte, dataLength int) int {
	buf[0] = byte(h.ServiceID)
	buf[1] = byte(h.ServiceType)
	binary.BigEndian.PutUint32(buf[2:6], h.Xid)
	binary.BigEndian.PutUint16(buf[6:8], h.ResponseDelay)
	binary.BigEndian.PutUint16(buf[8:10], uint16(dataLength))
	return HeaderSize
}

// Block is one entry of the block list. Data is everything after
// BlockLength: the BlockQualifier (Set requests) or BlockInfo (responses)
// followed by the value.
type Block struct {
	Key  block.Key
	Data []byte
}

// NewDataBlock builds a response data block: BlockInfo followed by value.
func NewDataBlock(key block.Key, info block.Info, value []byte) Block {
	data := make([]byte, 2+len(value))
	binary.BigEndian.PutUint16(data, uint16(info))
	copy(data[2:], value)
	return Block{Key: key, Data: data}
}

// NewSetBlock builds a Set request block: BlockQualifier followed by value.
func NewSetBlock(key block.Key, q block.Qualifier, value []byte) Block {
	data := make([]byte, 2+len(value))
	binary.BigEndian.PutUint16(data, uint16(q))
	copy(data[2:], value)
	return Block{Key: key, Data: data}
}

// NewStatusBlock builds a Control/Response block reporting the result for key.
func NewStatusBlock(key block.Key, code block.ErrorCode) Block {
	return Block{
		Key:  block.KeyResponse,
		Data: []byte{byte(key.Option), byte(key.Suboption), byte(code)},
	}
}

// SplitPrefix splits the 2-byte qualifier or info prefix from the value.
func (b Block) SplitPrefix() (uint16, []byte, bool) {
	if len(b.Data) < 2 {
		return 0, nil, false
	}
	return binary.BigEndian.Uint16(b.Data), b.Data[2:], true
}

// Status decodes a Control/Response block.
func (b Block) Status() (block.Key, block.ErrorCode, bool) {
	if b.Key != block.KeyResponse || len(b.Data) < 3 {
		return block.Key{}, 0, false
	}
	return block.Key{Option: block.Option(b.Data[0]), Suboption: block.Suboption(b.Data[1])},
		block.ErrorCode(b.Data[2]), true
}

// size returns the encoded size including header and padding.
func (b Block) size(bare bool) int {
	if bare {
		return 2
	}
	n := BlockHeaderSize + len(b.Data)
	return n + n%2
}

// Frame is a complete DCP frame.
type Frame struct {
	Destination net.HardwareAddr
	Source      net.HardwareAddr

	// VLAN holds the 802.1Q TCI of a tagged frame. Tagged is false for
	// untagged frames and for everything this package encodes.
	VLAN   uint16
	Tagged bool

	FrameID FrameID
	Header  Header
	Blocks  []Block
}

// IsGetRequest reports whether the block list uses the bare
// Option/Suboption layout of a Get request.
func (f *Frame) IsGetRequest() bool {
	return f.Header.ServiceID == ServiceGet && f.Header.ServiceType == ServiceTypeRequest
}

// DataLength returns the encoded size of the block list.
func (f *Frame) DataLength() int {
	bare := f.IsGetRequest()
	n := 0
	for _, b := range f.Blocks {
		n += b.size(bare)
	}
	return n
}

// Encode serializes the frame, zero-padded to MinFrameSize.
//
// Encode panics if the block list exceeds MaxDataLength: responses are
// built from bounded device data, so an oversized frame is a programming
// error rather than a runtime condition.
func (f *Frame) Encode() []byte {
	dataLength := f.DataLength()
	if dataLength > MaxDataLength {
		panic(fmt.Sprintf("pdu: block list of %d bytes exceeds %d", dataLength, MaxDataLength))
	}

	size := EthernetHeaderSize + FrameIDSize + HeaderSize + dataLength
	buf := make([]byte, max(size, MinFrameSize))

	copy(buf[0:6], f.Destination)
	copy(buf[6:12], f.Source)
	binary.BigEndian.PutUint16(buf[12:14], EtherType)
	binary.BigEndian.PutUint16(buf[14:16], uint16(f.FrameID))
	offset := EthernetHeaderSize + FrameIDSize
	offset += f.Header.EncodeTo(buf[offset:], dataLength)

	bare := f.IsGetRequest()
	for _, b := range f.Blocks {
		buf[offset] = byte(b.Key.Option)
		buf[offset+1] = byte(b.Key.Suboption)
		if bare {
			offset += 2
			continue
		}
		binary.BigEndian.PutUint16(buf[offset+2:], uint16(len(b.Data)))
		copy(buf[offset+BlockHeaderSize:], b.Data)
		offset += b.size(false)
	}

	return buf
}

// IsDCP reports whether raw carries the DCP EtherType, tagged or not.
func IsDCP(raw []byte) bool {
	_, _, _, err := etherType(raw)
	return err == nil
}

// etherType returns the offset of the FrameID and the VLAN tag, if any.
func etherType(raw []byte) (offset int, tci uint16, tagged bool, err error) {
	if len(raw) < EthernetHeaderSize {
		return 0, 0, false, fmt.Errorf("%w: %d bytes", ErrTruncatedFrame, len(raw))
	}
	et := binary.BigEndian.Uint16(raw[12:14])
	offset = EthernetHeaderSize
	if et == EtherTypeVLAN {
		if len(raw) < EthernetHeaderSize+VLANTagSize {
			return 0, 0, false, fmt.Errorf("%w: %d bytes", ErrTruncatedFrame, len(raw))
		}
		tci = binary.BigEndian.Uint16(raw[14:16])
		tagged = true
		et = binary.BigEndian.Uint16(raw[16:18])
		offset += VLANTagSize
	}
	if et != EtherType {
		return 0, 0, false, fmt.Errorf("%w: ethertype 0x%04x", ErrMalformedHeader, et)
	}
	return offset, tci, tagged, nil
}

// Decode parses a raw Ethernet frame. Bytes after DataLength (padding)
// are ignored.
func Decode(raw []byte) (*Frame, error) {
	offset, tci, tagged, err := etherType(raw)
	if err != nil {
		return nil, err
	}
	if len(raw) < offset+FrameIDSize+HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncatedFrame, len(raw), offset+FrameIDSize+HeaderSize)
	}

	f := &Frame{
		Destination: cloneMAC(raw[0:6]),
		Source:      cloneMAC(raw[6:12]),
		VLAN:        tci,
		Tagged:      tagged,
		FrameID:     FrameID(binary.BigEndian.Uint16(raw[offset:])),
	}
	if !f.FrameID.IsValid() {
		return nil, fmt.Errorf("%w: frame id 0x%04x", ErrMalformedHeader, uint16(f.FrameID))
	}
	offset += FrameIDSize

	h := raw[offset : offset+HeaderSize]
	f.Header = Header{
		ServiceID:     ServiceID(h[0]),
		ServiceType:   ServiceType(h[1]),
		Xid:           binary.BigEndian.Uint32(h[2:6]),
		ResponseDelay: binary.BigEndian.Uint16(h[6:8]),
	}
	dataLength := int(binary.BigEndian.Uint16(h[8:10]))
	offset += HeaderSize

	if dataLength > MaxDataLength {
		return nil, fmt.Errorf("%w: data length %d exceeds %d", ErrMalformedHeader, dataLength, MaxDataLength)
	}
	if len(raw)-offset < dataLength {
		return nil, fmt.Errorf("%w: data length %d, %d bytes present", ErrTruncatedFrame, dataLength, len(raw)-offset)
	}

	blocks, err := decodeBlocks(raw[offset:offset+dataLength], f.IsGetRequest())
	if err != nil {
		return nil, err
	}
	f.Blocks = blocks
	return f, nil
}

func decodeBlocks(data []byte, bare bool) ([]Block, error) {
	var blocks []Block

	if bare {
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("%w: get request length %d is odd", ErrMalformedBlock, len(data))
		}
		for i := 0; i < len(data); i += 2 {
			blocks = append(blocks, Block{Key: block.Key{
				Option:    block.Option(data[i]),
				Suboption: block.Suboption(data[i+1]),
			}})
		}
		return blocks, nil
	}

	for offset := 0; offset < len(data); {
		remaining := len(data) - offset
		if remaining < BlockHeaderSize {
			return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedBlock, remaining)
		}
		blockLength := int(binary.BigEndian.Uint16(data[offset+2:]))
		if blockLength > remaining-BlockHeaderSize {
			return nil, fmt.Errorf("%w: block length %d exceeds remaining %d", ErrMalformedBlock, blockLength, remaining-BlockHeaderSize)
		}

		start := offset + BlockHeaderSize
		b := Block{
			Key: block.Key{
				Option:    block.Option(data[offset]),
				Suboption: block.Suboption(data[offset+1]),
			},
			Data: append([]byte(nil), data[start:start+blockLength]...),
		}
		blocks = append(blocks, b)

		offset = start + blockLength
		// Odd-length blocks are followed by one pad byte, which may be
		// omitted after the last block.
		if blockLength%2 != 0 && offset < len(data) {
			offset++
		}
	}

	return blocks, nil
}

func cloneMAC(b []byte) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	copy(mac, b)
	return mac
}
