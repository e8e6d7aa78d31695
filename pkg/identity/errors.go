package identity

import "errors"

// Package-level errors.
var (
	// ErrInvalidConfig is returned when Config validation fails.
	ErrInvalidConfig = errors.New("identity: invalid configuration")

	// ErrStorageRequired is returned when Storage is nil.
	ErrStorageRequired = errors.New("identity: storage is required")

	// ErrInvalidMAC is returned when the MAC address is not 6 bytes.
	ErrInvalidMAC = errors.New("identity: MAC address must be 6 bytes")

	// ErrTxDone is returned when a committed or failed transaction is reused.
	ErrTxDone = errors.New("identity: transaction already finished")
)
