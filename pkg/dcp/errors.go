package dcp

import "errors"

// Configuration errors.
var (
	// ErrSenderRequired is returned when no Sender is configured.
	ErrSenderRequired = errors.New("dcp: sender is required")

	// ErrIndicatorRequired is returned when no Indicator is configured.
	ErrIndicatorRequired = errors.New("dcp: indicator is required")

	// ErrInvalidHello is returned for negative Hello repeats.
	ErrInvalidHello = errors.New("dcp: invalid hello configuration")
)

// Operation errors.
var (
	// ErrHelloDisabled is returned by Hello when announcements are disabled.
	ErrHelloDisabled = errors.New("dcp: hello disabled")

	// ErrSend wraps transport failures when sending a frame.
	ErrSend = errors.New("dcp: send failed")
)
