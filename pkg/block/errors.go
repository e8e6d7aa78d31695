package block

import "errors"

// Block-level errors. They never abort a request; the dispatcher reports
// them to the peer as an ErrorCode inside an otherwise successful response.
var (
	// ErrUnknownOption is returned for an Option the device does not implement.
	ErrUnknownOption = errors.New("block: unknown option")

	// ErrUnknownSuboption is returned for a known Option with an unknown Suboption.
	ErrUnknownSuboption = errors.New("block: unknown suboption")

	// ErrInvalidValue is returned when a payload has the wrong length or content.
	ErrInvalidValue = errors.New("block: invalid value")

	// ErrNotPermitted is returned when a block is not a valid target of the operation.
	ErrNotPermitted = errors.New("block: not permitted")

	// ErrResource is returned when a valid write could not be committed.
	ErrResource = errors.New("block: resource error")

	// ErrValueType is returned when Encode receives a value of the wrong type.
	ErrValueType = errors.New("block: value type does not match codec")
)

// CodeFor maps an error to the block error code reported on the wire.
func CodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, ErrUnknownOption):
		return ErrorOptionUnsupported
	case errors.Is(err, ErrUnknownSuboption):
		return ErrorSuboptionUnsupported
	case errors.Is(err, ErrInvalidValue):
		return ErrorSuboptionNotSet
	case errors.Is(err, ErrNotPermitted):
		return ErrorSetNotPossible
	default:
		return ErrorResource
	}
}
