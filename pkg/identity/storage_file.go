package identity

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/backkem/dcp/pkg/block"
)

// FileVersion is the current version of the identity file format.
const FileVersion = 1

// fileDocument is the YAML layout of a FileStorage file.
type fileDocument struct {
	Version     int               `yaml:"version"`
	SavedAt     time.Time         `yaml:"saved_at"`
	StationName *string           `yaml:"station_name,omitempty"`
	IP          *fileIP           `yaml:"ip,omitempty"`
	Instance    *fileInstance     `yaml:"instance,omitempty"`
	Application map[string]string `yaml:"application,omitempty"`
}

type fileIP struct {
	Address string `yaml:"address"`
	Mask    string `yaml:"mask"`
	Gateway string `yaml:"gateway"`
}

type fileInstance struct {
	High uint8 `yaml:"high"`
	Low  uint8 `yaml:"low"`
}

// FileStorage persists the identity record to a YAML file. Writes go to a
// temporary file in the same directory which is then renamed over the
// target, so a crash never leaves a half-written file behind.
//
// All methods are safe for concurrent use.
type FileStorage struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStorage creates a file storage at path. The file and its parent
// directory are created on the first Save.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path, now: time.Now}
}

// Path returns the file path.
func (s *FileStorage) Path() string { return s.path }

// Load reads the record from disk.
// Returns nil, nil if the file doesn't exist.
func (s *FileStorage) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save writes r to disk.
func (s *FileStorage) Save(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(r)
}

// Erase removes the entries covered by scope. The file is deleted when
// nothing remains.
func (s *FileStorage) Erase(scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.load()
	if err != nil || r == nil {
		return err
	}
	r.erase(scope)
	if r.IsEmpty() {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return s.save(r)
}

func (s *FileStorage) load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("identity: parse %s: %w", s.path, err)
	}
	if doc.Version > FileVersion {
		return nil, fmt.Errorf("identity: %s has version %d, newest supported is %d", s.path, doc.Version, FileVersion)
	}

	r := &Record{
		StationName: doc.StationName,
		Application: doc.Application,
	}
	if doc.IP != nil {
		p, err := block.ParseIPParameter(doc.IP.Address, doc.IP.Mask, doc.IP.Gateway)
		if err != nil {
			return nil, fmt.Errorf("identity: %s ip: %w", s.path, err)
		}
		r.IP = &p
	}
	if doc.Instance != nil {
		r.Instance = &block.DeviceInstance{High: doc.Instance.High, Low: doc.Instance.Low}
	}
	return r, nil
}

func (s *FileStorage) save(r *Record) error {
	doc := fileDocument{
		Version:     FileVersion,
		SavedAt:     s.now().UTC(),
		StationName: r.StationName,
		Application: r.Application,
	}
	if r.IP != nil {
		doc.IP = &fileIP{
			Address: addrString(r.IP.Address),
			Mask:    addrString(r.IP.Mask),
			Gateway: addrString(r.IP.Gateway),
		}
	}
	if r.Instance != nil {
		doc.Instance = &fileInstance{High: r.Instance.High, Low: r.Instance.Low}
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func addrString(a netip.Addr) string {
	if !a.Is4() {
		return "0.0.0.0"
	}
	return a.String()
}

// Verify FileStorage implements Storage.
var _ Storage = (*FileStorage)(nil)
