package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"prism/internal/domain"
)

const contactsFilename = "contacts.json"

var (
	// ErrUnknownContact is returned when a reference is neither a saved name
	// nor a valid public key.
	ErrUnknownContact = errors.New("unknown contact")
	// ErrBadContactName is returned for empty names or names containing ':'.
	ErrBadContactName = errors.New("contact names must be non-empty and must not contain ':'")
)

// ContactFileStore maps human-readable names to peer public keys.
type ContactFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewContactFileStore returns a ContactFileStore rooted at dir.
func NewContactFileStore(dir string) *ContactFileStore {
	return &ContactFileStore{dir: dir}
}

func (s *ContactFileStore) path() string { return filepath.Join(s.dir, contactsFilename) }

func (s *ContactFileStore) load() (map[string]domain.PublicKey, error) {
	m := make(map[string]domain.PublicKey)
	if err := readJSON(s.path(), &m); err != nil {
		return nil, fmt.Errorf("contacts: %w", err)
	}
	return m, nil
}

// AddContact saves or overwrites name.
func (s *ContactFileStore) AddContact(name string, key domain.PublicKey) error {
	if name == "" || strings.Contains(name, ":") {
		return ErrBadContactName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	m[name] = key
	return writeJSON(s.path(), m, fileMode)
}

// Resolve returns the key saved under ref, or ref parsed as a base64 key.
func (s *ContactFileStore) Resolve(ref string) (domain.PublicKey, error) {
	s.mu.Lock()
	m, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return domain.PublicKey{}, err
	}
	if k, ok := m[ref]; ok {
		return k, nil
	}
	k, err := domain.ParsePublicKey(ref)
	if err != nil {
		return domain.PublicKey{}, fmt.Errorf("%w: %q", ErrUnknownContact, ref)
	}
	return k, nil
}

// NameOf returns the saved name for key, if any.
func (s *ContactFileStore) NameOf(key domain.PublicKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return "", false
	}
	for name, k := range m {
		if k.Equal(key) {
			return name, true
		}
	}
	return "", false
}

// ReplaceKey points every contact saved with old at next. It is called after
// a peer's readdress has been verified.
func (s *ContactFileStore) ReplaceKey(old, next domain.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for name, k := range m {
		if k.Equal(old) {
			m[name] = next
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return writeJSON(s.path(), m, fileMode)
}

// Contacts returns all saved names in sorted order.
func (s *ContactFileStore) Contacts() ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Contact, 0, len(m))
	for name, k := range m {
		out = append(out, domain.Contact{Name: name, Key: k})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Compile-time assertion that ContactFileStore implements domain.ContactStore.
var _ domain.ContactStore = (*ContactFileStore)(nil)
