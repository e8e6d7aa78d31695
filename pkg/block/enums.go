// Package block implements the typed fields (blocks) carried in the body of
// a DCP message.
//
// Every block is identified by an (Option, Suboption) pair. The package keeps
// a static codec table keyed by that pair, built once at init, with a pure
// Decode and Encode function per entry. Codecs never touch device state;
// semantic checks that depend on the current identity live in the identity
// and dispatch packages.
package block

import "fmt"

// Option is the 8-bit block category.
type Option uint8

const (
	// OptionIP groups the MAC address and IP configuration blocks.
	OptionIP Option = 0x01

	// OptionDeviceProperties groups the descriptive device blocks.
	OptionDeviceProperties Option = 0x02

	// OptionDHCP is reserved for DHCP parameters (not supported).
	OptionDHCP Option = 0x03

	// OptionControl groups transaction, signal, reset and response blocks.
	OptionControl Option = 0x05

	// OptionDeviceInitiative carries the Hello policy of the device.
	OptionDeviceInitiative Option = 0x06

	// OptionAll selects every block (Identify All / Get All).
	OptionAll Option = 0xff
)

// String returns a human-readable name for the option.
func (o Option) String() string {
	switch o {
	case OptionIP:
		return "IP"
	case OptionDeviceProperties:
		return "DeviceProperties"
	case OptionDHCP:
		return "DHCP"
	case OptionControl:
		return "Control"
	case OptionDeviceInitiative:
		return "DeviceInitiative"
	case OptionAll:
		return "All"
	default:
		return fmt.Sprintf("Option(0x%02x)", uint8(o))
	}
}

// Suboption is the 8-bit field identifier within an Option.
type Suboption uint8

// OptionIP suboptions.
const (
	SuboptionMACAddress  Suboption = 0x01
	SuboptionIPParameter Suboption = 0x02
	SuboptionFullIPSuite Suboption = 0x03
)

// OptionDeviceProperties suboptions.
const (
	SuboptionDeviceVendor   Suboption = 0x01
	SuboptionNameOfStation  Suboption = 0x02
	SuboptionDeviceID       Suboption = 0x03
	SuboptionDeviceRole     Suboption = 0x04
	SuboptionDeviceOptions  Suboption = 0x05
	SuboptionAliasName      Suboption = 0x06
	SuboptionDeviceInstance Suboption = 0x07
)

// OptionControl suboptions.
const (
	SuboptionStartTransaction Suboption = 0x01
	SuboptionEndTransaction   Suboption = 0x02
	SuboptionSignal           Suboption = 0x03
	SuboptionResponse         Suboption = 0x04
	SuboptionFactoryReset     Suboption = 0x05
	SuboptionResetToFactory   Suboption = 0x06
)

// OptionDeviceInitiative and OptionAll suboptions.
const (
	SuboptionDeviceInitiative Suboption = 0x01
	SuboptionAll              Suboption = 0xff
)

// Key identifies a block by its (Option, Suboption) pair.
type Key struct {
	Option    Option
	Suboption Suboption
}

// String returns "Option/0xNN", or the registered codec name when known.
func (k Key) String() string {
	if c, ok := table[k]; ok {
		return c.Name
	}
	return fmt.Sprintf("%s/0x%02x", k.Option, uint8(k.Suboption))
}

// Well-known keys.
var (
	KeyMACAddress       = Key{OptionIP, SuboptionMACAddress}
	KeyIPParameter      = Key{OptionIP, SuboptionIPParameter}
	KeyFullIPSuite      = Key{OptionIP, SuboptionFullIPSuite}
	KeyDeviceVendor     = Key{OptionDeviceProperties, SuboptionDeviceVendor}
	KeyNameOfStation    = Key{OptionDeviceProperties, SuboptionNameOfStation}
	KeyDeviceID         = Key{OptionDeviceProperties, SuboptionDeviceID}
	KeyDeviceRole       = Key{OptionDeviceProperties, SuboptionDeviceRole}
	KeyDeviceOptions    = Key{OptionDeviceProperties, SuboptionDeviceOptions}
	KeyDeviceInstance   = Key{OptionDeviceProperties, SuboptionDeviceInstance}
	KeyStartTransaction = Key{OptionControl, SuboptionStartTransaction}
	KeyEndTransaction   = Key{OptionControl, SuboptionEndTransaction}
	KeySignal           = Key{OptionControl, SuboptionSignal}
	KeyResponse         = Key{OptionControl, SuboptionResponse}
	KeyFactoryReset     = Key{OptionControl, SuboptionFactoryReset}
	KeyResetToFactory   = Key{OptionControl, SuboptionResetToFactory}
	KeyDeviceInitiative = Key{OptionDeviceInitiative, SuboptionDeviceInitiative}
	KeyAll              = Key{OptionAll, SuboptionAll}
)

// Qualifier is the 2-byte BlockQualifier that precedes the payload of every
// block in a Set request.
type Qualifier uint16

// QualifierPermanent is bit 0: store the value permanently.
const QualifierPermanent Qualifier = 0x0001

// QualifierFor returns the qualifier for a permanent or temporary write.
func QualifierFor(persist bool) Qualifier {
	if persist {
		return QualifierPermanent
	}
	return 0
}

// Persistent reports whether the permanent bit is set.
func (q Qualifier) Persistent() bool {
	return q&QualifierPermanent != 0
}

// ResetMode extracts the reset mode carried in bits 1-15 of a
// ResetToFactory qualifier.
func (q Qualifier) ResetMode() ResetMode {
	return ResetMode(q >> 1)
}

// Info is the 2-byte BlockInfo that precedes the value of every data block
// in a Get, Identify or Hello response.
type Info uint16

// InfoIPSet is set in the IPParameter BlockInfo when an address is configured.
const InfoIPSet Info = 0x0001

// ResetMode selects what a ResetToFactory request erases.
type ResetMode uint16

const (
	ResetApplicationData ResetMode = 1
	ResetCommunication   ResetMode = 2
	ResetEngineering     ResetMode = 3
	ResetAllData         ResetMode = 4
	ResetDevice          ResetMode = 8
	ResetAndRestore      ResetMode = 9
)

// String returns a human-readable name for the reset mode.
func (m ResetMode) String() string {
	switch m {
	case ResetApplicationData:
		return "ApplicationData"
	case ResetCommunication:
		return "Communication"
	case ResetEngineering:
		return "Engineering"
	case ResetAllData:
		return "AllData"
	case ResetDevice:
		return "Device"
	case ResetAndRestore:
		return "ResetAndRestore"
	default:
		return fmt.Sprintf("ResetMode(%d)", uint16(m))
	}
}

// IsValid returns true if the mode is one the device implements.
func (m ResetMode) IsValid() bool {
	switch m {
	case ResetApplicationData, ResetCommunication, ResetEngineering,
		ResetAllData, ResetDevice, ResetAndRestore:
		return true
	default:
		return false
	}
}

// ClearsApplication reports whether the mode erases application data.
func (m ResetMode) ClearsApplication() bool {
	switch m {
	case ResetApplicationData, ResetEngineering, ResetAllData, ResetDevice, ResetAndRestore:
		return true
	default:
		return false
	}
}

// ClearsCommunication reports whether the mode restores the station name and
// IP configuration to factory defaults.
func (m ResetMode) ClearsCommunication() bool {
	switch m {
	case ResetCommunication, ResetAllData, ResetDevice, ResetAndRestore:
		return true
	default:
		return false
	}
}

// ErrorCode is the block error carried in a Control/Response block.
type ErrorCode uint8

const (
	ErrorNone                 ErrorCode = 0x00
	ErrorOptionUnsupported    ErrorCode = 0x01
	ErrorSuboptionUnsupported ErrorCode = 0x02
	ErrorSuboptionNotSet      ErrorCode = 0x03
	ErrorResource             ErrorCode = 0x04
	ErrorSetNotPossible       ErrorCode = 0x05
	ErrorInOperation          ErrorCode = 0x06
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrorNone:
		return "None"
	case ErrorOptionUnsupported:
		return "OptionUnsupported"
	case ErrorSuboptionUnsupported:
		return "SuboptionUnsupported"
	case ErrorSuboptionNotSet:
		return "SuboptionNotSet"
	case ErrorResource:
		return "Resource"
	case ErrorSetNotPossible:
		return "SetNotPossible"
	case ErrorInOperation:
		return "InOperation"
	default:
		return fmt.Sprintf("ErrorCode(0x%02x)", uint8(c))
	}
}
