package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"prism/internal/domain"
	"prism/internal/util/memzero"
)

const keyringFilename = "keyring.json.enc"

// ErrNoKeyring is returned when no keyring has been saved yet.
var ErrNoKeyring = errors.New("no keyring found; run init first")

// KeyringFileStore persists the local keyring to disk, encrypted under a
// passphrase-derived key.
type KeyringFileStore struct {
	dir    string
	params scryptParams
	mu     sync.Mutex
}

// KeyringOption configures a KeyringFileStore.
type KeyringOption func(*KeyringFileStore)

// WithScryptCost overrides the scrypt N parameter. Tests use it to keep key
// derivation fast.
func WithScryptCost(n int) KeyringOption {
	return func(s *KeyringFileStore) { s.params.N = n }
}

// NewKeyringFileStore returns a KeyringFileStore rooted at dir.
func NewKeyringFileStore(dir string, opts ...KeyringOption) *KeyringFileStore {
	s := &KeyringFileStore{dir: dir, params: scryptParamsDefault()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *KeyringFileStore) path() string { return filepath.Join(s.dir, keyringFilename) }

// Exists reports whether a keyring file is present.
func (s *KeyringFileStore) Exists() bool {
	_, err := os.Stat(s.path())
	return err == nil
}

// SaveKeyring encrypts kr and atomically replaces the keyring file.
func (s *KeyringFileStore) SaveKeyring(passphrase string, kr domain.Keyring) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(kr)
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)

	ct, err := encrypt(passphrase, raw, s.params)
	if err != nil {
		return err
	}
	return writeFile(s.path(), ct, fileMode)
}

// LoadKeyring reads and decrypts the keyring.
func (s *KeyringFileStore) LoadKeyring(passphrase string) (domain.Keyring, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.path())
	if err != nil {
		return domain.Keyring{}, err
	}
	if b == nil {
		return domain.Keyring{}, ErrNoKeyring
	}
	pt, err := decrypt(passphrase, b)
	if err != nil {
		return domain.Keyring{}, err
	}
	defer memzero.Zero(pt)

	var kr domain.Keyring
	if err := json.Unmarshal(pt, &kr); err != nil {
		return domain.Keyring{}, err
	}
	return kr, nil
}

// Compile-time assertion that KeyringFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*KeyringFileStore)(nil)
