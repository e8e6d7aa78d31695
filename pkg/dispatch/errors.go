package dispatch

import "errors"

var (
	// ErrStateRequired is returned when Config.State is nil.
	ErrStateRequired = errors.New("dispatch: identity state is required")

	// ErrSignalRequired is returned when Config.Signal is nil.
	ErrSignalRequired = errors.New("dispatch: signal controller is required")
)
