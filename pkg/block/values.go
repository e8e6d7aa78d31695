package block

import (
	"net"
	"net/netip"
)

// Value is a decoded block payload. Every value type knows its Key so it
// can be routed back to its codec.
type Value interface {
	Key() Key
}

// MACAddress is the read-only hardware address of the device.
type MACAddress net.HardwareAddr

func (MACAddress) Key() Key { return KeyMACAddress }

// IPParameter is the IPv4 address, subnet mask and default gateway.
type IPParameter struct {
	Address netip.Addr
	Mask    netip.Addr
	Gateway netip.Addr
}

func (IPParameter) Key() Key { return KeyIPParameter }

// IsZero reports whether all three addresses are 0.0.0.0 (or unset).
func (p IPParameter) IsZero() bool {
	return as4(p.Address) == [4]byte{} && as4(p.Mask) == [4]byte{} && as4(p.Gateway) == [4]byte{}
}

// Equal compares the IPv4 representation of both parameters.
func (p IPParameter) Equal(o IPParameter) bool {
	return as4(p.Address) == as4(o.Address) &&
		as4(p.Mask) == as4(o.Mask) &&
		as4(p.Gateway) == as4(o.Gateway)
}

// ParseIPParameter builds an IPParameter from dotted-quad strings.
func ParseIPParameter(address, mask, gateway string) (IPParameter, error) {
	var p IPParameter
	for _, f := range []struct {
		dst *netip.Addr
		s   string
	}{{&p.Address, address}, {&p.Mask, mask}, {&p.Gateway, gateway}} {
		if f.s == "" {
			*f.dst = netip.IPv4Unspecified()
			continue
		}
		a, err := netip.ParseAddr(f.s)
		if err != nil || !a.Is4() {
			return IPParameter{}, ErrInvalidValue
		}
		*f.dst = a
	}
	return p, nil
}

// DeviceVendor is the vendor-assigned device type string.
type DeviceVendor string

func (DeviceVendor) Key() Key { return KeyDeviceVendor }

// StationName is the NameOfStation, the DCP address of the device.
type StationName string

func (StationName) Key() Key { return KeyNameOfStation }

// DeviceID is the vendor id and device id pair.
type DeviceID struct {
	VendorID uint16
	DeviceID uint16
}

func (DeviceID) Key() Key { return KeyDeviceID }

// DeviceRole is the role bit field of the device.
type DeviceRole uint8

// Device role bits.
const (
	RoleIODevice     DeviceRole = 0x01
	RoleIOController DeviceRole = 0x02
	RoleMultidevice  DeviceRole = 0x04
	RoleSupervisor   DeviceRole = 0x08
)

func (DeviceRole) Key() Key { return KeyDeviceRole }

// DeviceOptions lists the blocks the device supports.
type DeviceOptions []Key

func (DeviceOptions) Key() Key { return KeyDeviceOptions }

// DeviceInstance is the instance number of the device (high, low).
type DeviceInstance struct {
	High uint8
	Low  uint8
}

func (DeviceInstance) Key() Key { return KeyDeviceInstance }

// Transaction marks the start or end of a multi-frame Set transaction.
type Transaction struct {
	End bool
}

func (t Transaction) Key() Key {
	if t.End {
		return KeyEndTransaction
	}
	return KeyStartTransaction
}

// Signal is the value of a Signal request. Any nonzero value starts the
// flash sequence.
type Signal uint16

// SignalFlashOnce is the value used when a Signal block carries no payload.
const SignalFlashOnce Signal = 0x0100

func (Signal) Key() Key { return KeySignal }

// Active reports whether the value requests a flash sequence.
func (s Signal) Active() bool { return s != 0 }

// Reset is a factory reset request.
type Reset struct {
	Mode ResetMode

	// Legacy is true for the FactoryReset suboption, which has no mode
	// selector and always resets communication parameters.
	Legacy bool
}

func (r Reset) Key() Key {
	if r.Legacy {
		return KeyFactoryReset
	}
	return KeyResetToFactory
}

// DeviceInitiative is the Hello policy of the device.
type DeviceInitiative uint16

// InitiativeHello is bit 0: the device issues Hello requests.
const InitiativeHello DeviceInitiative = 0x0001

func (DeviceInitiative) Key() Key { return KeyDeviceInitiative }

// AllSelector matches every device in an Identify request.
type AllSelector struct{}

func (AllSelector) Key() Key { return KeyAll }

// as4 returns the IPv4 bytes of a, or zeros for an unset or non-IPv4 address.
func as4(a netip.Addr) [4]byte {
	if !a.Is4() {
		return [4]byte{}
	}
	return a.As4()
}
