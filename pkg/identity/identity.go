// Package identity holds the mutable device identity that DCP reads and
// writes: station name, IP configuration and the descriptive device fields.
//
// The identity starts from compiled-in factory values, overlaid with
// whatever the Storage holds. It is changed only through transactions
// (see Tx), which validate every staged write before anything is applied,
// persist what was written with the permanent qualifier, and push IP
// changes to the IPConfigurator exactly once per commit.
//
// State is not safe for concurrent use. It is owned by the single goroutine
// that runs the DCP responder.
package identity

import (
	"net"

	"github.com/backkem/dcp/pkg/block"
)

// Identity is a snapshot of the device identity.
type Identity struct {
	// StationName is the NameOfStation. Empty means unnamed.
	StationName string

	// MAC is the hardware address. Never written over DCP.
	MAC net.HardwareAddr

	// IP is the IPv4 suite. The zero value means no address.
	IP block.IPParameter

	// NameTemporary and IPTemporary are true when the live value was set
	// without the permanent qualifier and will not survive a restart.
	NameTemporary bool
	IPTemporary   bool

	VendorName string
	VendorID   uint16
	DeviceID   uint16
	Role       block.DeviceRole
	Instance   block.DeviceInstance

	// HelloEnabled is advertised in the DeviceInitiative block and gates
	// Hello announcements.
	HelloEnabled bool
}

// Clone returns a deep copy.
func (id Identity) Clone() Identity {
	id.MAC = append(net.HardwareAddr(nil), id.MAC...)
	return id
}

// Value returns the block value for key. Keys that are not readable
// return the registry error or block.ErrNotPermitted.
func (id *Identity) Value(key block.Key) (block.Value, error) {
	c, err := block.Lookup(key)
	if err != nil {
		return nil, err
	}
	if !c.Readable() {
		return nil, block.ErrNotPermitted
	}

	switch key {
	case block.KeyMACAddress:
		return block.MACAddress(id.MAC), nil
	case block.KeyIPParameter:
		return id.IP, nil
	case block.KeyDeviceVendor:
		return block.DeviceVendor(id.VendorName), nil
	case block.KeyNameOfStation:
		return block.StationName(id.StationName), nil
	case block.KeyDeviceID:
		return block.DeviceID{VendorID: id.VendorID, DeviceID: id.DeviceID}, nil
	case block.KeyDeviceRole:
		return id.Role, nil
	case block.KeyDeviceOptions:
		return block.Supported(), nil
	case block.KeyDeviceInstance:
		return id.Instance, nil
	case block.KeyDeviceInitiative:
		if id.HelloEnabled {
			return block.InitiativeHello, nil
		}
		return block.DeviceInitiative(0), nil
	}
	return nil, block.ErrNotPermitted
}

// Info returns the BlockInfo reported alongside the value of key.
func (id *Identity) Info(key block.Key) block.Info {
	if key == block.KeyIPParameter && !id.IP.IsZero() {
		return block.InfoIPSet
	}
	return 0
}

// restoreCommunication resets the fields covered by the communication
// reset scope to their factory values.
func (id *Identity) restoreCommunication(factory *Identity) {
	id.StationName = factory.StationName
	id.IP = factory.IP
	id.Instance = factory.Instance
	id.NameTemporary = false
	id.IPTemporary = false
}
