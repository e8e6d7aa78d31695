package block

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"unicode"
)

// Access describes how the network may use a block.
type Access uint8

const (
	// AccessRead allows the block in Get responses and Identify/Hello sets.
	AccessRead Access = 1 << iota

	// AccessWrite allows the block as the target of a Set request.
	AccessWrite

	// AccessFilter allows the block as an Identify filter.
	AccessFilter
)

// Codec encodes and decodes the payload of one block type.
//
// Decode receives the payload without length prefix; for Set requests the
// BlockQualifier has already been split off and is passed separately.
// Both functions are pure.
type Codec struct {
	Key    Key
	Name   string
	Access Access
	Decode func(q Qualifier, payload []byte) (Value, error)
	Encode func(v Value) ([]byte, error)
}

// Readable reports whether the block can be read from the network.
func (c *Codec) Readable() bool { return c.Access&AccessRead != 0 }

// Writable reports whether the block can be the target of a Set.
func (c *Codec) Writable() bool { return c.Access&AccessWrite != 0 }

// Filterable reports whether the block can be used as an Identify filter.
func (c *Codec) Filterable() bool { return c.Access&AccessFilter != 0 }

// Maximum lengths of string blocks.
const (
	MaxStationNameLength  = 240
	MaxDeviceVendorLength = 255
)

// codecs is the closed set of supported blocks, in DeviceOptions order.
var codecs = []Codec{
	{KeyMACAddress, "MACAddress", AccessRead | AccessFilter, decodeMAC, encodeMAC},
	{KeyIPParameter, "IPParameter", AccessRead | AccessWrite | AccessFilter, decodeIPParameter, encodeIPParameter},
	{KeyDeviceVendor, "DeviceVendor", AccessRead | AccessFilter, decodeDeviceVendor, encodeDeviceVendor},
	{KeyNameOfStation, "NameOfStation", AccessRead | AccessWrite | AccessFilter, decodeStationName, encodeStationName},
	{KeyDeviceID, "DeviceID", AccessRead | AccessFilter, decodeDeviceID, encodeDeviceID},
	{KeyDeviceRole, "DeviceRole", AccessRead | AccessFilter, decodeDeviceRole, encodeDeviceRole},
	{KeyDeviceOptions, "DeviceOptions", AccessRead, decodeDeviceOptions, encodeDeviceOptions},
	{KeyDeviceInstance, "DeviceInstance", AccessRead | AccessWrite | AccessFilter, decodeDeviceInstance, encodeDeviceInstance},
	{KeyStartTransaction, "StartTransaction", AccessWrite, decodeTransaction(false), encodeEmpty},
	{KeyEndTransaction, "EndTransaction", AccessWrite, decodeTransaction(true), encodeEmpty},
	{KeySignal, "Signal", AccessWrite, decodeSignal, encodeSignal},
	{KeyFactoryReset, "FactoryReset", AccessWrite, decodeFactoryReset, encodeEmpty},
	{KeyResetToFactory, "ResetToFactory", AccessWrite, decodeResetToFactory, encodeEmpty},
	{KeyDeviceInitiative, "DeviceInitiative", AccessRead, decodeDeviceInitiative, encodeDeviceInitiative},
	{KeyAll, "All", AccessFilter, decodeAll, encodeEmpty},
}

var (
	table   = make(map[Key]*Codec, len(codecs))
	options = make(map[Option]bool)
)

func init() {
	for i := range codecs {
		c := &codecs[i]
		table[c.Key] = c
		options[c.Key.Option] = true
	}
}

// Lookup returns the codec for a key. The error distinguishes an unknown
// Option from an unknown Suboption of a known Option.
func Lookup(k Key) (*Codec, error) {
	if c, ok := table[k]; ok {
		return c, nil
	}
	if options[k.Option] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSuboption, k)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownOption, k)
}

// Decode looks up the codec for k and decodes payload.
func Decode(k Key, q Qualifier, payload []byte) (Value, error) {
	c, err := Lookup(k)
	if err != nil {
		return nil, err
	}
	return c.Decode(q, payload)
}

// Encode serializes v with the codec registered for v.Key().
func Encode(v Value) ([]byte, error) {
	c, err := Lookup(v.Key())
	if err != nil {
		return nil, err
	}
	return c.Encode(v)
}

// Readable returns the keys of every readable block, in table order.
func Readable() []Key {
	keys := make([]Key, 0, len(codecs))
	for i := range codecs {
		if codecs[i].Readable() {
			keys = append(keys, codecs[i].Key)
		}
	}
	return keys
}

// Supported returns the keys advertised in DeviceOptions: every block
// except the All selector.
func Supported() DeviceOptions {
	keys := make(DeviceOptions, 0, len(codecs))
	for i := range codecs {
		if codecs[i].Key != KeyAll {
			keys = append(keys, codecs[i].Key)
		}
	}
	return keys
}

func fixedLength(k Key, payload []byte, n int) error {
	if len(payload) != n {
		return fmt.Errorf("%w: %s length %d, want %d", ErrInvalidValue, k, len(payload), n)
	}
	return nil
}

func decodeMAC(_ Qualifier, payload []byte) (Value, error) {
	if err := fixedLength(KeyMACAddress, payload, 6); err != nil {
		return nil, err
	}
	mac := make(MACAddress, 6)
	copy(mac, payload)
	return mac, nil
}

func encodeMAC(v Value) ([]byte, error) {
	mac, ok := v.(MACAddress)
	if !ok || len(mac) != 6 {
		return nil, ErrValueType
	}
	return append([]byte(nil), mac...), nil
}

func decodeIPParameter(_ Qualifier, payload []byte) (Value, error) {
	if err := fixedLength(KeyIPParameter, payload, 12); err != nil {
		return nil, err
	}
	return IPParameter{
		Address: netip.AddrFrom4([4]byte(payload[0:4])),
		Mask:    netip.AddrFrom4([4]byte(payload[4:8])),
		Gateway: netip.AddrFrom4([4]byte(payload[8:12])),
	}, nil
}

func encodeIPParameter(v Value) ([]byte, error) {
	p, ok := v.(IPParameter)
	if !ok {
		return nil, ErrValueType
	}
	buf := make([]byte, 0, 12)
	for _, a := range []netip.Addr{p.Address, p.Mask, p.Gateway} {
		b := as4(a)
		buf = append(buf, b[:]...)
	}
	return buf, nil
}

func decodeDeviceVendor(_ Qualifier, payload []byte) (Value, error) {
	if len(payload) > MaxDeviceVendorLength || !printable(payload) {
		return nil, fmt.Errorf("%w: device vendor", ErrInvalidValue)
	}
	return DeviceVendor(payload), nil
}

func encodeDeviceVendor(v Value) ([]byte, error) {
	s, ok := v.(DeviceVendor)
	if !ok {
		return nil, ErrValueType
	}
	return []byte(s), nil
}

func decodeStationName(_ Qualifier, payload []byte) (Value, error) {
	if err := ValidateStationName(string(payload)); err != nil {
		return nil, err
	}
	return StationName(payload), nil
}

func encodeStationName(v Value) ([]byte, error) {
	s, ok := v.(StationName)
	if !ok {
		return nil, ErrValueType
	}
	return []byte(s), nil
}

func decodeDeviceID(_ Qualifier, payload []byte) (Value, error) {
	if err := fixedLength(KeyDeviceID, payload, 4); err != nil {
		return nil, err
	}
	return DeviceID{
		VendorID: binary.BigEndian.Uint16(payload[0:2]),
		DeviceID: binary.BigEndian.Uint16(payload[2:4]),
	}, nil
}

func encodeDeviceID(v Value) ([]byte, error) {
	id, ok := v.(DeviceID)
	if !ok {
		return nil, ErrValueType
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], id.VendorID)
	binary.BigEndian.PutUint16(buf[2:4], id.DeviceID)
	return buf, nil
}

func decodeDeviceRole(_ Qualifier, payload []byte) (Value, error) {
	if err := fixedLength(KeyDeviceRole, payload, 2); err != nil {
		return nil, err
	}
	return DeviceRole(payload[0]), nil
}

func encodeDeviceRole(v Value) ([]byte, error) {
	r, ok := v.(DeviceRole)
	if !ok {
		return nil, ErrValueType
	}
	return []byte{byte(r), 0x00}, nil
}

func decodeDeviceOptions(_ Qualifier, payload []byte) (Value, error) {
	if len(payload)%2 != 0 {
		return nil, fmt.Errorf("%w: device options length %d", ErrInvalidValue, len(payload))
	}
	opts := make(DeviceOptions, 0, len(payload)/2)
	for i := 0; i < len(payload); i += 2 {
		opts = append(opts, Key{Option(payload[i]), Suboption(payload[i+1])})
	}
	return opts, nil
}

func encodeDeviceOptions(v Value) ([]byte, error) {
	opts, ok := v.(DeviceOptions)
	if !ok {
		return nil, ErrValueType
	}
	buf := make([]byte, 0, 2*len(opts))
	for _, k := range opts {
		buf = append(buf, byte(k.Option), byte(k.Suboption))
	}
	return buf, nil
}

func decodeDeviceInstance(_ Qualifier, payload []byte) (Value, error) {
	if err := fixedLength(KeyDeviceInstance, payload, 2); err != nil {
		return nil, err
	}
	return DeviceInstance{High: payload[0], Low: payload[1]}, nil
}

func encodeDeviceInstance(v Value) ([]byte, error) {
	inst, ok := v.(DeviceInstance)
	if !ok {
		return nil, ErrValueType
	}
	return []byte{inst.High, inst.Low}, nil
}

func decodeTransaction(end bool) func(Qualifier, []byte) (Value, error) {
	return func(Qualifier, []byte) (Value, error) {
		return Transaction{End: end}, nil
	}
}

// decodeSignal never fails: a missing value means "flash once", extra
// bytes are ignored.
func decodeSignal(_ Qualifier, payload []byte) (Value, error) {
	if len(payload) < 2 {
		return SignalFlashOnce, nil
	}
	return Signal(binary.BigEndian.Uint16(payload[0:2])), nil
}

func encodeSignal(v Value) ([]byte, error) {
	s, ok := v.(Signal)
	if !ok {
		return nil, ErrValueType
	}
	return binary.BigEndian.AppendUint16(nil, uint16(s)), nil
}

func decodeFactoryReset(Qualifier, []byte) (Value, error) {
	return Reset{Mode: ResetCommunication, Legacy: true}, nil
}

func decodeResetToFactory(q Qualifier, _ []byte) (Value, error) {
	mode := q.ResetMode()
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: reset mode %d", ErrInvalidValue, uint16(mode))
	}
	return Reset{Mode: mode}, nil
}

func decodeDeviceInitiative(_ Qualifier, payload []byte) (Value, error) {
	if err := fixedLength(KeyDeviceInitiative, payload, 2); err != nil {
		return nil, err
	}
	return DeviceInitiative(binary.BigEndian.Uint16(payload)), nil
}

func encodeDeviceInitiative(v Value) ([]byte, error) {
	d, ok := v.(DeviceInitiative)
	if !ok {
		return nil, ErrValueType
	}
	return binary.BigEndian.AppendUint16(nil, uint16(d)), nil
}

func decodeAll(_ Qualifier, payload []byte) (Value, error) {
	if len(payload) != 0 {
		return nil, fmt.Errorf("%w: all selector carries %d bytes", ErrInvalidValue, len(payload))
	}
	return AllSelector{}, nil
}

func encodeEmpty(Value) ([]byte, error) {
	return nil, nil
}

func printable(b []byte) bool {
	for _, c := range b {
		if c > unicode.MaxASCII || !unicode.IsPrint(rune(c)) {
			return false
		}
	}
	return true
}
