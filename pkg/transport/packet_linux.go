//go:build linux

package transport

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/backkem/dcp/pkg/pdu"
)

// readTimeout bounds a blocking read so Close is observed.
const readTimeout = 250 * time.Millisecond

// dcpFilter accepts DCP frames, untagged or behind one VLAN tag.
var dcpFilter = []bpf.Instruction{
	bpf.LoadAbsolute{Off: 12, Size: 2},
	bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(pdu.EtherType), SkipTrue: 4},
	bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(pdu.EtherTypeVLAN), SkipFalse: 2},
	bpf.LoadAbsolute{Off: 16, Size: 2},
	bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(pdu.EtherType), SkipTrue: 1},
	bpf.RetConstant{Val: 0},
	bpf.RetConstant{Val: MaxFrameSize},
}

// PacketLink is a raw AF_PACKET socket bound to one interface.
type PacketLink struct {
	fd      int
	ifindex int
	mac     net.HardwareAddr
}

// OpenPacketLink opens a packet socket on the named interface, attaches the
// DCP filter and joins the Identify multicast group. Requires CAP_NET_RAW.
func OpenPacketLink(ifname string) (*PacketLink, error) {
	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, err
	}
	if len(ifi.HardwareAddr) != 6 {
		return nil, fmt.Errorf("%w: %s has no MAC-48 address", ErrInvalidAddress, ifname)
	}

	proto := htons(unix.ETH_P_ALL)
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(proto))
	if err != nil {
		return nil, fmt.Errorf("transport: packet socket: %w", err)
	}
	l := &PacketLink{fd: fd, ifindex: ifi.Index, mac: ifi.HardwareAddr}

	if err := l.setup(proto); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return l, nil
}

func (l *PacketLink) setup(proto uint16) error {
	raw, err := bpf.Assemble(dcpFilter)
	if err != nil {
		return fmt.Errorf("transport: assemble filter: %w", err)
	}
	filter := make([]unix.SockFilter, len(raw))
	for i, ins := range raw {
		filter[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	prog := unix.SockFprog{Len: uint16(len(filter)), Filter: &filter[0]}
	if err := unix.SetsockoptSockFprog(l.fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &prog); err != nil {
		return fmt.Errorf("transport: attach filter: %w", err)
	}

	if err := unix.Bind(l.fd, &unix.SockaddrLinklayer{Protocol: proto, Ifindex: l.ifindex}); err != nil {
		return fmt.Errorf("transport: bind: %w", err)
	}

	mreq := unix.PacketMreq{Ifindex: int32(l.ifindex), Type: unix.PACKET_MR_MULTICAST, Alen: 6}
	copy(mreq.Address[:], pdu.IdentifyMulticast)
	if err := unix.SetsockoptPacketMreq(l.fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, &mreq); err != nil {
		return fmt.Errorf("transport: join identify multicast: %w", err)
	}

	tv := unix.NsecToTimeval(readTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(l.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fmt.Errorf("transport: read timeout: %w", err)
	}
	return nil
}

// HardwareAddr returns the MAC address of the interface.
func (l *PacketLink) HardwareAddr() net.HardwareAddr { return l.mac }

// Read receives one frame. Frames sent by this host are skipped. A read
// that times out returns an error whose Timeout method reports true.
func (l *PacketLink) Read(b []byte) (int, error) {
	for {
		n, from, err := unix.Recvfrom(l.fd, b, 0)
		switch {
		case err == unix.EAGAIN || err == unix.EINTR:
			return 0, timeoutError{}
		case err == unix.EBADF:
			return 0, net.ErrClosed
		case err != nil:
			return 0, err
		}
		if ll, ok := from.(*unix.SockaddrLinklayer); ok && ll.Pkttype == unix.PACKET_OUTGOING {
			continue
		}
		return n, nil
	}
}

// Write sends one complete Ethernet frame.
func (l *PacketLink) Write(b []byte) (int, error) {
	if len(b) < pdu.EthernetHeaderSize {
		return 0, fmt.Errorf("%w: %d bytes", pdu.ErrTruncatedFrame, len(b))
	}
	to := &unix.SockaddrLinklayer{Ifindex: l.ifindex, Halen: 6}
	copy(to.Addr[:], b[0:6])
	if err := unix.Sendto(l.fd, b, 0, to); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close closes the socket.
func (l *PacketLink) Close() error {
	return unix.Close(l.fd)
}

func htons(v uint16) uint16 {
	return binary.NativeEndian.Uint16(binary.BigEndian.AppendUint16(nil, v))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "transport: read timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}
