package block

import (
	"bytes"
	"errors"
	"net/netip"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		wantErr error
	}{
		{"station name", KeyNameOfStation, nil},
		{"ip parameter", KeyIPParameter, nil},
		{"all selector", KeyAll, nil},
		{"unknown suboption", Key{OptionDeviceProperties, 0x42}, ErrUnknownSuboption},
		{"full ip suite not supported", KeyFullIPSuite, ErrUnknownSuboption},
		{"unknown option", Key{0x09, 0x01}, ErrUnknownOption},
		{"dhcp not supported", Key{OptionDHCP, 0x0c}, ErrUnknownOption},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Lookup(tc.key)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Lookup(%v) error = %v, want %v", tc.key, err, tc.wantErr)
			}
			if tc.wantErr == nil && c.Key != tc.key {
				t.Errorf("Lookup(%v).Key = %v", tc.key, c.Key)
			}
		})
	}
}

func TestDecodeFixedLength(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		payload []byte
		wantErr bool
	}{
		{"mac ok", KeyMACAddress, []byte{1, 2, 3, 4, 5, 6}, false},
		{"mac short", KeyMACAddress, []byte{1, 2, 3}, true},
		{"ip ok", KeyIPParameter, make([]byte, 12), false},
		{"ip long", KeyIPParameter, make([]byte, 13), true},
		{"device id ok", KeyDeviceID, []byte{0x01, 0x0a, 0x00, 0x01}, false},
		{"device id short", KeyDeviceID, []byte{0x01}, true},
		{"role ok", KeyDeviceRole, []byte{0x01, 0x00}, false},
		{"instance long", KeyDeviceInstance, []byte{0, 1, 2}, true},
		{"options odd", KeyDeviceOptions, []byte{0x01}, true},
		{"all with payload", KeyAll, []byte{0x00}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.key, 0, tc.payload)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Decode() error = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestIPParameterAnyBitPattern(t *testing.T) {
	payload := []byte{
		0xc0, 0xa8, 0x01, 0xab,
		0xff, 0x00, 0xff, 0x00, // non-contiguous mask still decodes
		0xff, 0xff, 0xff, 0xff,
	}
	v, err := Decode(KeyIPParameter, 0, payload)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	p := v.(IPParameter)
	if p.Address != netip.MustParseAddr("192.168.1.171") {
		t.Errorf("Address = %v", p.Address)
	}
	if p.Mask != netip.MustParseAddr("255.0.255.0") {
		t.Errorf("Mask = %v", p.Mask)
	}

	encoded, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !bytes.Equal(encoded, payload) {
		t.Errorf("Encode() = %x, want %x", encoded, payload)
	}
}

func TestIPParameterZeroValueEncodes(t *testing.T) {
	encoded, err := Encode(IPParameter{})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !bytes.Equal(encoded, make([]byte, 12)) {
		t.Errorf("Encode(IPParameter{}) = %x, want zeros", encoded)
	}
	if !(IPParameter{}).IsZero() {
		t.Error("IPParameter{}.IsZero() = false")
	}
}

func TestSignalDecodeNeverFails(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    Signal
	}{
		{"absent value", nil, SignalFlashOnce},
		{"single byte", []byte{0x01}, SignalFlashOnce},
		{"flash once", []byte{0x01, 0x00}, 0x0100},
		{"zero", []byte{0x00, 0x00}, 0},
		{"extra bytes", []byte{0x00, 0x07, 0xff}, 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Decode(KeySignal, 0, tc.payload)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if v.(Signal) != tc.want {
				t.Errorf("Decode() = %#04x, want %#04x", v, tc.want)
			}
		})
	}
}

func TestResetDecode(t *testing.T) {
	tests := []struct {
		name      string
		key       Key
		qualifier Qualifier
		want      ResetMode
		wantErr   bool
	}{
		{"legacy factory reset", KeyFactoryReset, 0, ResetCommunication, false},
		{"reset application", KeyResetToFactory, Qualifier(ResetApplicationData) << 1, ResetApplicationData, false},
		{"reset communication", KeyResetToFactory, Qualifier(ResetCommunication) << 1, ResetCommunication, false},
		{"reset all", KeyResetToFactory, Qualifier(ResetAllData)<<1 | QualifierPermanent, ResetAllData, false},
		{"mode zero", KeyResetToFactory, 0, 0, true},
		{"unknown mode", KeyResetToFactory, 5 << 1, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Decode(tc.key, tc.qualifier, nil)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidValue) {
					t.Errorf("Decode() error = %v, want ErrInvalidValue", err)
				}
				return
			}
			r := v.(Reset)
			if r.Mode != tc.want {
				t.Errorf("Mode = %v, want %v", r.Mode, tc.want)
			}
			if r.Key() != tc.key {
				t.Errorf("Key() = %v, want %v", r.Key(), tc.key)
			}
		})
	}
}

func TestEncodeRejectsWrongType(t *testing.T) {
	c, err := Lookup(KeyNameOfStation)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Encode(DeviceVendor("x")); !errors.Is(err, ErrValueType) {
		t.Errorf("Encode(wrong type) error = %v, want ErrValueType", err)
	}
}

func TestSupportedExcludesAll(t *testing.T) {
	for _, k := range Supported() {
		if k == KeyAll {
			t.Fatal("Supported() contains the All selector")
		}
	}
	opts := Supported()
	encoded, err := Encode(opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) != 2*len(opts) {
		t.Errorf("encoded length = %d, want %d", len(encoded), 2*len(opts))
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, ErrorNone},
		{ErrUnknownOption, ErrorOptionUnsupported},
		{ErrUnknownSuboption, ErrorSuboptionUnsupported},
		{ErrInvalidValue, ErrorSuboptionNotSet},
		{ErrNotPermitted, ErrorSetNotPossible},
		{ErrResource, ErrorResource},
		{errors.New("disk full"), ErrorResource},
	}

	for _, tc := range tests {
		if got := CodeFor(tc.err); got != tc.want {
			t.Errorf("CodeFor(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
