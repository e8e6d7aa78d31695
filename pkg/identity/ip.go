package identity

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/backkem/dcp/pkg/block"
)

// ValidateIPParameter checks the semantic consistency of an IP suite.
//
// The all-zero suite is valid and means "no address". Otherwise the mask
// must be contiguous and non-zero, the address must be a unicast host
// address inside its subnet, and the gateway must be 0.0.0.0 or inside the
// same subnet.
func ValidateIPParameter(p block.IPParameter) error {
	if p.IsZero() {
		return nil
	}

	addr := u32(p.Address)
	mask := u32(p.Mask)
	gw := u32(p.Gateway)

	if mask == 0 || !contiguous(mask) {
		return fmt.Errorf("%w: subnet mask %v", block.ErrInvalidValue, p.Mask)
	}

	switch {
	case addr == 0:
		return fmt.Errorf("%w: address 0.0.0.0 with mask %v", block.ErrInvalidValue, p.Mask)
	case addr>>24 == 127:
		return fmt.Errorf("%w: loopback address %v", block.ErrInvalidValue, p.Address)
	case addr>>28 == 0xe:
		return fmt.Errorf("%w: multicast address %v", block.ErrInvalidValue, p.Address)
	case addr == 0xffffffff:
		return fmt.Errorf("%w: broadcast address", block.ErrInvalidValue)
	}

	// /31 and /32 have no network or broadcast address.
	if host := ^mask; host > 1 {
		switch addr & host {
		case 0:
			return fmt.Errorf("%w: %v is the network address", block.ErrInvalidValue, p.Address)
		case host:
			return fmt.Errorf("%w: %v is the broadcast address", block.ErrInvalidValue, p.Address)
		}
	}

	if gw != 0 && gw&mask != addr&mask {
		return fmt.Errorf("%w: gateway %v outside subnet", block.ErrInvalidValue, p.Gateway)
	}
	return nil
}

func contiguous(mask uint32) bool {
	inv := ^mask
	return inv&(inv+1) == 0
}

// u32 returns the address as a host-order integer; unset or non-IPv4
// addresses read as 0.
func u32(a netip.Addr) uint32 {
	if !a.Is4() {
		return 0
	}
	b := a.As4()
	return binary.BigEndian.Uint32(b[:])
}
