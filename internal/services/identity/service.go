package identity

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/sirupsen/logrus"

	"prism/internal/crypto"
	"prism/internal/domain"
	idproto "prism/internal/protocol/identity"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
	// ErrIdentityExists is returned by Generate when a keyring is already stored.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrNotLoaded is returned when an operation needs an identity that has
	// not been generated or loaded yet.
	ErrNotLoaded = errors.New("identity not loaded")
)

// Service manages the local keyring using a backing store.
//
// The keyring contains:
//   - The current identity (X25519 box key and Ed25519 signing key).
//   - During a readdress, the identity it superseded, kept until Retire.
type Service struct {
	store  domain.IdentityStore
	issuer *idproto.Issuer
	log    logrus.FieldLogger

	mu   sync.Mutex // serialises writers
	ring atomic.Pointer[domain.Keyring]
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore, issuer *idproto.Issuer, log logrus.FieldLogger) *Service {
	return &Service{store: s, issuer: issuer, log: log}
}

// Generate creates a new identity, saves it encrypted with the passphrase,
// and returns the identity plus its fingerprint.
func (s *Service) Generate(passphrase string) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Exists() {
		return domain.Identity{}, "", ErrIdentityExists
	}
	id, err := s.issuer.Generate()
	if err != nil {
		return domain.Identity{}, "", err
	}
	kr := domain.Keyring{Current: id}
	if err := s.store.SaveKeyring(passphrase, kr); err != nil {
		return domain.Identity{}, "", err
	}
	s.ring.Store(&kr)

	fp := crypto.FingerprintKey(id.Public)
	s.log.WithField("fingerprint", fp).Info("identity generated")
	return id, fp, nil
}

// Load decrypts the stored keyring and makes it current.
func (s *Service) Load(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kr, err := s.store.LoadKeyring(passphrase)
	if err != nil {
		return domain.Identity{}, err
	}
	if err := s.issuer.Check(kr.Current); err != nil {
		return domain.Identity{}, fmt.Errorf("current identity: %w", err)
	}
	if kr.Previous != nil {
		if err := s.issuer.Check(*kr.Previous); err != nil {
			return domain.Identity{}, fmt.Errorf("previous identity: %w", err)
		}
	}
	s.ring.Store(&kr)
	return kr.Current, nil
}

// Current returns the identity in force.
func (s *Service) Current() (domain.Identity, bool) {
	kr := s.ring.Load()
	if kr == nil {
		return domain.Identity{}, false
	}
	return kr.Current, true
}

// Previous returns the superseded identity while a readdress is draining.
func (s *Service) Previous() (domain.Identity, bool) {
	kr := s.ring.Load()
	if kr == nil || kr.Previous == nil {
		return domain.Identity{}, false
	}
	return *kr.Previous, true
}

// Rotate issues a new identity superseding the current one, persists the
// keyring and swaps it in. The old identity stays available as Previous.
func (s *Service) Rotate(passphrase string) (old, next domain.Identity, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kr := s.ring.Load()
	if kr == nil {
		return old, next, ErrNotLoaded
	}
	old = kr.Current
	next, err = s.issuer.Rotate(old)
	if err != nil {
		return domain.Identity{}, domain.Identity{}, err
	}
	rotated := domain.Keyring{Current: next, Previous: &old}
	if err := s.store.SaveKeyring(passphrase, rotated); err != nil {
		return domain.Identity{}, domain.Identity{}, err
	}
	s.ring.Store(&rotated)

	s.log.WithFields(logrus.Fields{
		"old": crypto.FingerprintKey(old.Public),
		"new": crypto.FingerprintKey(next.Public),
	}).Info("identity rotated")
	return old, next, nil
}

// Retire discards the superseded identity once in-flight exchanges drain.
func (s *Service) Retire(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kr := s.ring.Load()
	if kr == nil {
		return ErrNotLoaded
	}
	if kr.Previous == nil {
		return nil
	}
	retired := domain.Keyring{Current: kr.Current}
	if err := s.store.SaveKeyring(passphrase, retired); err != nil {
		return err
	}
	s.ring.Store(&retired)
	s.log.WithField("fingerprint", crypto.FingerprintKey(kr.Previous.Public)).Info("previous identity retired")
	return nil
}

// Fingerprint returns the fingerprint of the current public key.
func (s *Service) Fingerprint() (domain.Fingerprint, error) {
	id, ok := s.Current()
	if !ok {
		return "", ErrNotLoaded
	}
	return crypto.FingerprintKey(id.Public), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
