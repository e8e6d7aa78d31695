package block

import (
	"fmt"
	"net/netip"
	"strings"
)

// MaxLabelLength is the longest label allowed between dots in a station name.
const MaxLabelLength = 63

// ValidateStationName checks a NameOfStation against the naming rules:
// printable ASCII, at most MaxStationNameLength bytes, dot-separated labels
// of 1-63 characters from [a-z0-9-] that neither start nor end with a hyphen.
// The name must not look like an IPv4 address and its first label must not
// have the reserved "port-xyz" or "port-xyz-abcde" form.
//
// The empty name is valid; setting it removes the name.
func ValidateStationName(name string) error {
	if len(name) > MaxStationNameLength {
		return fmt.Errorf("%w: station name is %d bytes, max %d", ErrInvalidValue, len(name), MaxStationNameLength)
	}
	if name == "" {
		return nil
	}
	if !printable([]byte(name)) {
		return fmt.Errorf("%w: station name contains non-printable bytes", ErrInvalidValue)
	}
	if _, err := netip.ParseAddr(name); err == nil {
		return fmt.Errorf("%w: station name %q is an IP address", ErrInvalidValue, name)
	}

	labels := strings.Split(name, ".")
	for _, label := range labels {
		if err := validateLabel(label); err != nil {
			return fmt.Errorf("%w: station name %q: %s", ErrInvalidValue, name, err)
		}
	}
	if isPortLabel(labels[0]) {
		return fmt.Errorf("%w: station name %q uses reserved port form", ErrInvalidValue, name)
	}
	return nil
}

type labelError string

func (e labelError) Error() string { return string(e) }

func validateLabel(label string) error {
	if len(label) == 0 {
		return labelError("empty label")
	}
	if len(label) > MaxLabelLength {
		return labelError("label longer than 63 characters")
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return labelError("label starts or ends with '-'")
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return labelError(fmt.Sprintf("invalid character %q", c))
		}
	}
	return nil
}

// isPortLabel reports "port-xyz" or "port-xyz-abcde" with decimal digits.
func isPortLabel(label string) bool {
	rest, ok := strings.CutPrefix(label, "port-")
	if !ok {
		return false
	}
	if len(rest) != 3 && len(rest) != 9 {
		return false
	}
	if !digits(rest[:3]) {
		return false
	}
	if len(rest) == 3 {
		return true
	}
	return rest[3] == '-' && digits(rest[4:])
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
