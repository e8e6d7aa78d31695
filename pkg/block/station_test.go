package block

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateStationName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"simple", "rt-labs-demo", false},
		{"dotted", "line-1.press-04", false},
		{"digits", "device7", false},
		{"max length", strings.Repeat(strings.Repeat("a", 59)+".", 3) + strings.Repeat("a", 60), false},
		{"too long", strings.Repeat("a", 241), true},
		{"uppercase", "Device", true},
		{"space", "my device", true},
		{"non printable", "dev\x01ice", true},
		{"non ascii", "ger\xe4t", true},
		{"leading hyphen", "-device", true},
		{"trailing hyphen", "device-", true},
		{"empty label", "a..b", true},
		{"label too long", strings.Repeat("a", 64), true},
		{"ip address", "192.168.1.1", true},
		{"port form", "port-001", true},
		{"port extended form", "port-001-00042", true},
		{"port prefix ok", "port-a01", false},
		{"port later label", "dev.port-001", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStationName(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateStationName(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("error = %v, want ErrInvalidValue", err)
			}
		})
	}
}
