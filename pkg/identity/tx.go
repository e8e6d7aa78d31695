package identity

import (
	"fmt"
	"slices"

	"github.com/backkem/dcp/pkg/block"
)

// Tx stages identity changes. Writes are validated and applied, in order,
// to a private copy; Commit makes them live, Discard drops them. A failed
// Write leaves the staged copy untouched.
type Tx struct {
	s      *State
	staged Identity
	record *Record

	erase []Scope
	dirty bool
	done  bool
}

// Write stages a value. The permanent bit of q selects whether the value is
// saved to storage; a temporary write drops any persisted override so the
// factory value comes back on restart.
//
// Returns block.ErrNotPermitted for blocks that are not identity writes
// (read-only fields, control blocks) and block.ErrInvalidValue when the
// value fails semantic validation.
func (tx *Tx) Write(v block.Value, q block.Qualifier) error {
	if tx.done {
		return ErrTxDone
	}
	persist := q.Persistent()

	switch v := v.(type) {
	case block.StationName:
		tx.staged.StationName = string(v)
		tx.staged.NameTemporary = !persist
		tx.setRecord(&tx.record.StationName, string(v), persist)

	case block.IPParameter:
		if err := ValidateIPParameter(v); err != nil {
			return err
		}
		tx.staged.IP = v
		tx.staged.IPTemporary = !persist
		if persist {
			tx.record.IP = &v
			tx.dirty = true
		} else if tx.record.IP != nil {
			tx.record.IP = nil
			tx.dirty = true
		}

	case block.DeviceInstance:
		if !tx.s.policy.AllowInstanceSet {
			return fmt.Errorf("%w: device instance is fixed", block.ErrNotPermitted)
		}
		tx.staged.Instance = v
		if persist {
			tx.record.Instance = &v
			tx.dirty = true
		} else if tx.record.Instance != nil {
			tx.record.Instance = nil
			tx.dirty = true
		}

	case block.Reset:
		return tx.Reset(v.Mode)

	default:
		return fmt.Errorf("%w: %s is not writable", block.ErrNotPermitted, v.Key())
	}
	return nil
}

func (tx *Tx) setRecord(field **string, value string, persist bool) {
	switch {
	case persist:
		*field = &value
		tx.dirty = true
	case *field != nil:
		*field = nil
		tx.dirty = true
	}
}

// Reset stages a factory reset. Writes staged after the reset apply on top
// of the restored values.
func (tx *Tx) Reset(mode block.ResetMode) error {
	if tx.done {
		return ErrTxDone
	}
	if !mode.IsValid() {
		return fmt.Errorf("%w: reset mode %v", block.ErrInvalidValue, mode)
	}

	if mode.ClearsCommunication() {
		tx.staged.restoreCommunication(&tx.s.factory)
		tx.record.erase(ScopeCommunication)
		tx.addErase(ScopeCommunication)
	}
	if mode.ClearsApplication() {
		tx.record.erase(ScopeApplication)
		tx.addErase(ScopeApplication)
	}
	return nil
}

func (tx *Tx) addErase(scope Scope) {
	if !slices.Contains(tx.erase, scope) {
		tx.erase = append(tx.erase, scope)
	}
}

// Staged returns a snapshot of the identity as it would be after Commit.
func (tx *Tx) Staged() Identity {
	return tx.staged.Clone()
}

// Discard drops the transaction.
func (tx *Tx) Discard() {
	tx.done = true
}

// Commit applies the staged changes.
//
// The IP suite is pushed to the IPConfigurator once, and only when it
// differs from the live one. Storage is updated next, in one write. On any
// failure the live identity and the stored record are left unchanged and
// the error wraps block.ErrResource.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	s := tx.s

	ipChanged := !tx.staged.IP.Equal(s.live.IP)
	if ipChanged && s.ipc != nil {
		if err := s.ipc.SetIPSuite(tx.staged.IP); err != nil {
			return fmt.Errorf("%w: set ip suite: %v", block.ErrResource, err)
		}
	}

	if err := tx.persist(); err != nil {
		if ipChanged && s.ipc != nil {
			if rerr := s.ipc.SetIPSuite(s.live.IP); rerr != nil {
				s.log.Errorf("failed to restore ip suite %v: %v", s.live.IP.Address, rerr)
			}
		}
		return fmt.Errorf("%w: %v", block.ErrResource, err)
	}

	if tx.staged.StationName != s.live.StationName {
		s.log.Infof("station name %q -> %q (temporary=%v)", s.live.StationName, tx.staged.StationName, tx.staged.NameTemporary)
	}
	if ipChanged {
		s.log.Infof("ip suite %v/%v gw %v (temporary=%v)", tx.staged.IP.Address, tx.staged.IP.Mask, tx.staged.IP.Gateway, tx.staged.IPTemporary)
	}

	s.live = tx.staged
	s.persisted = tx.record
	return nil
}

// persist writes the staged record. tx.record already has the reset scopes
// erased, so a single Save covers both. Erase is only used when nothing
// remains; if a later scope fails the previous record is saved back.
func (tx *Tx) persist() error {
	s := tx.s
	if !tx.dirty && len(tx.erase) == 0 {
		return nil
	}
	if len(tx.erase) == 0 || !tx.record.IsEmpty() {
		if err := s.storage.Save(tx.record); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		return nil
	}

	for i, scope := range tx.erase {
		if err := s.storage.Erase(scope); err != nil {
			if i > 0 && !s.persisted.IsEmpty() {
				if rerr := s.storage.Save(s.persisted); rerr != nil {
					s.log.Errorf("failed to restore storage after erase error: %v", rerr)
				}
			}
			return fmt.Errorf("erase %v: %w", scope, err)
		}
		s.log.Debugf("erased %v storage", scope)
	}
	return nil
}
