package identity

import (
	"fmt"
	"net"

	"github.com/pion/logging"

	"github.com/backkem/dcp/pkg/block"
)

// State owns the live device identity.
type State struct {
	factory   Identity
	live      Identity
	persisted *Record

	storage Storage
	ipc     IPConfigurator
	policy  Policy

	log logging.LeveledLogger
}

// New creates the identity state: factory values overlaid with the
// record held in config.Storage.
func New(config Config) (*State, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	config.applyDefaults()

	factory := config.Factory.Clone()
	factory.MAC = append(net.HardwareAddr(nil), config.MAC...)
	factory.NameTemporary = false
	factory.IPTemporary = false

	s := &State{
		factory: factory,
		storage: config.Storage,
		ipc:     config.IPConfigurator,
		policy:  config.Policy,
		log:     config.LoggerFactory.NewLogger("identity"),
	}

	rec, err := config.Storage.Load()
	if err != nil {
		return nil, fmt.Errorf("identity: load: %w", err)
	}
	if rec == nil {
		rec = &Record{}
	}
	if rec.StationName != nil {
		if err := block.ValidateStationName(*rec.StationName); err != nil {
			s.log.Warnf("ignoring stored station name: %v", err)
			rec.StationName = nil
		}
	}
	if rec.IP != nil {
		if err := ValidateIPParameter(*rec.IP); err != nil {
			s.log.Warnf("ignoring stored IP suite: %v", err)
			rec.IP = nil
		}
	}

	s.persisted = rec
	s.live = factory.Clone()
	rec.apply(&s.live)

	s.log.Infof("identity: name=%q ip=%v mac=%v", s.live.StationName, s.live.IP.Address, s.live.MAC)
	return s, nil
}

// Identity returns a snapshot of the live identity.
func (s *State) Identity() Identity {
	return s.live.Clone()
}

// Factory returns the factory identity restored by a reset.
func (s *State) Factory() Identity {
	return s.factory.Clone()
}

// MAC returns the device hardware address.
func (s *State) MAC() net.HardwareAddr {
	return s.live.MAC
}

// Policy returns the write policy.
func (s *State) Policy() Policy {
	return s.policy
}

// Value returns the live value of a readable block.
func (s *State) Value(key block.Key) (block.Value, error) {
	return s.live.Value(key)
}

// Info returns the BlockInfo for a readable block.
func (s *State) Info(key block.Key) block.Info {
	return s.live.Info(key)
}

// ReadField returns the encoded live value of a readable block.
func (s *State) ReadField(key block.Key) ([]byte, error) {
	v, err := s.live.Value(key)
	if err != nil {
		return nil, err
	}
	return block.Encode(v)
}

// WriteField decodes data as the value of key and commits it in a
// transaction of its own.
func (s *State) WriteField(key block.Key, data []byte, persist bool) error {
	q := block.QualifierFor(persist)
	v, err := block.Decode(key, q, data)
	if err != nil {
		return err
	}

	tx := s.Begin()
	if err := tx.Write(v, q); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// ResetToFactory restores the factory values covered by mode and erases
// the matching persisted entries.
func (s *State) ResetToFactory(mode block.ResetMode) error {
	tx := s.Begin()
	if err := tx.Reset(mode); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// ApplicationValue returns an entry stored by the device application.
func (s *State) ApplicationValue(key string) (string, bool) {
	v, ok := s.persisted.Application[key]
	return v, ok
}

// SetApplicationValue stores an application entry. Application entries are
// erased by the application reset modes.
func (s *State) SetApplicationValue(key, value string) error {
	rec := s.persisted.Clone()
	if rec.Application == nil {
		rec.Application = make(map[string]string)
	}
	rec.Application[key] = value
	if err := s.storage.Save(rec); err != nil {
		return fmt.Errorf("%w: %v", block.ErrResource, err)
	}
	s.persisted = rec
	return nil
}

// Begin starts a transaction on a copy of the live identity.
func (s *State) Begin() *Tx {
	return &Tx{
		s:      s,
		staged: s.live.Clone(),
		record: s.persisted.Clone(),
	}
}
