//go:build !linux

package transport

import "net"

// PacketLink is a raw packet socket. Only Linux is supported.
type PacketLink struct{}

// OpenPacketLink returns ErrUnsupported.
func OpenPacketLink(string) (*PacketLink, error) {
	return nil, ErrUnsupported
}

// HardwareAddr returns nil.
func (*PacketLink) HardwareAddr() net.HardwareAddr { return nil }

func (*PacketLink) Read([]byte) (int, error)  { return 0, ErrUnsupported }
func (*PacketLink) Write([]byte) (int, error) { return 0, ErrUnsupported }
func (*PacketLink) Close() error              { return nil }
