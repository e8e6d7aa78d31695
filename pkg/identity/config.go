package identity

import (
	"github.com/pion/logging"

	"github.com/backkem/dcp/pkg/block"
)

// Factory defaults used when Config.Factory leaves a field unset.
const (
	DefaultVendorName = "dcp-go device"
	DefaultVendorID   = 0x0493
	DefaultDeviceID   = 0x0002
)

// IPConfigurator applies an IP suite to the host network stack.
type IPConfigurator interface {
	SetIPSuite(p block.IPParameter) error
}

// Policy holds deployment choices that change what the network may write.
type Policy struct {
	// AllowInstanceSet makes DeviceInstance writable over DCP.
	AllowInstanceSet bool
}

// Config configures a State.
type Config struct {
	// MAC is the device hardware address. Required.
	MAC []byte

	// Factory holds the compiled-in defaults restored by a factory reset.
	// MAC, NameTemporary and IPTemporary are ignored.
	Factory Identity

	// Storage persists permanent writes. Required.
	Storage Storage

	// IPConfigurator receives IP changes. Optional.
	IPConfigurator IPConfigurator

	Policy Policy

	// LoggerFactory creates the package logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Storage == nil {
		return ErrStorageRequired
	}
	if len(c.MAC) != 6 {
		return ErrInvalidMAC
	}
	if c.Factory.StationName != "" {
		if err := block.ValidateStationName(c.Factory.StationName); err != nil {
			return err
		}
	}
	return ValidateIPParameter(c.Factory.IP)
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Factory.VendorName == "" {
		c.Factory.VendorName = DefaultVendorName
	}
	if c.Factory.VendorID == 0 {
		c.Factory.VendorID = DefaultVendorID
	}
	if c.Factory.DeviceID == 0 {
		c.Factory.DeviceID = DefaultDeviceID
	}
	if c.Factory.Role == 0 {
		c.Factory.Role = block.RoleIODevice
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
}
