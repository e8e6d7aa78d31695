package identity

import (
	"maps"

	"github.com/backkem/dcp/pkg/block"
)

// Scope selects a group of persisted entries erased together by a reset.
type Scope uint8

const (
	// ScopeCommunication covers station name, IP suite and instance.
	ScopeCommunication Scope = iota + 1

	// ScopeApplication covers data stored by the device application.
	ScopeApplication
)

// String returns a human-readable name for the scope.
func (s Scope) String() string {
	switch s {
	case ScopeCommunication:
		return "communication"
	case ScopeApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Record is the persisted override of the factory identity. A nil field
// means "use the factory value".
type Record struct {
	StationName *string
	IP          *block.IPParameter
	Instance    *block.DeviceInstance

	// Application holds opaque entries owned by the device application.
	Application map[string]string
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return &Record{}
	}
	c := &Record{Application: maps.Clone(r.Application)}
	if r.StationName != nil {
		v := *r.StationName
		c.StationName = &v
	}
	if r.IP != nil {
		v := *r.IP
		c.IP = &v
	}
	if r.Instance != nil {
		v := *r.Instance
		c.Instance = &v
	}
	return c
}

// IsEmpty reports whether the record overrides nothing.
func (r *Record) IsEmpty() bool {
	return r == nil || (r.StationName == nil && r.IP == nil && r.Instance == nil && len(r.Application) == 0)
}

// erase clears the entries covered by scope.
func (r *Record) erase(scope Scope) {
	switch scope {
	case ScopeCommunication:
		r.StationName = nil
		r.IP = nil
		r.Instance = nil
	case ScopeApplication:
		r.Application = nil
	}
}

// apply overlays the record onto id.
func (r *Record) apply(id *Identity) {
	if r.StationName != nil {
		id.StationName = *r.StationName
	}
	if r.IP != nil {
		id.IP = *r.IP
	}
	if r.Instance != nil {
		id.Instance = *r.Instance
	}
}

// Storage abstracts persistent storage of the identity overrides.
// Implementations can use files, flash, or memory.
//
// All methods must be safe for concurrent use.
type Storage interface {
	// Load returns the stored record, or nil if nothing is stored.
	Load() (*Record, error)

	// Save replaces the stored record.
	Save(r *Record) error

	// Erase removes the entries covered by scope.
	Erase(scope Scope) error
}
