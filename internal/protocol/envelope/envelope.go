package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/util/memzero"
)

const (
	// MinKeySize and MaxKeySize bound the length of keys from NewKey.
	MinKeySize = 32
	MaxKeySize = 64

	// minAcceptedKeySize is the shortest key Seal or Open will use (128 bits).
	minAcceptedKeySize = 16
	keyContext         = "prism-envelope"
)

// ErrKeySize is returned for keys shorter than 128 bits or longer than
// MaxKeySize.
var ErrKeySize = errors.New("envelope: symmetric key has invalid length")

// Sealer seals and opens payloads under a SymmetricKey.
type Sealer struct {
	p *crypto.Provider
}

// New returns a Sealer bound to an initialized provider.
func New(p *crypto.Provider) *Sealer { return &Sealer{p: p} }

// NewKey returns a fresh key of random length in [MinKeySize, MaxKeySize].
func (s *Sealer) NewKey() (domain.SymmetricKey, error) {
	extra, err := s.p.RandomInt(MaxKeySize - MinKeySize + 1)
	if err != nil {
		return nil, err
	}
	return s.p.RandomBytes(MinKeySize + extra)
}

// Seal serializes v and seals it under key.
func (s *Sealer) Seal(v any, key domain.SymmetricKey) (domain.EncryptedPayload, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return domain.EncryptedPayload{}, fmt.Errorf("envelope: encode payload: %w", err)
	}
	defer memzero.Zero(plain)
	return s.SealBytes(plain, key)
}

// ErrBadTarget is returned when Open is not given a non-nil pointer.
var ErrBadTarget = errors.New("envelope: decode target must be a non-nil pointer")

// Open opens sealed under key and decodes the payload into out, which must be
// a non-nil pointer. out is left untouched unless the whole payload decodes.
func (s *Sealer) Open(sealed domain.EncryptedPayload, key domain.SymmetricKey, out any) error {
	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return ErrBadTarget
	}
	plain, err := s.OpenBytes(sealed, key)
	if err != nil {
		return err
	}
	defer memzero.Zero(plain)

	fresh := reflect.New(dst.Elem().Type())
	if err := domain.DecodeStrict(plain, fresh.Interface()); err != nil {
		return err
	}
	dst.Elem().Set(fresh.Elem())
	return nil
}

// SealBytes seals raw bytes under key with a fresh nonce.
func (s *Sealer) SealBytes(plain []byte, key domain.SymmetricKey) (domain.EncryptedPayload, error) {
	aeadKey, err := s.aeadKey(key)
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	defer memzero.Zero(aeadKey)

	nonce, err := s.p.RandomBytes(crypto.AEADNonceSize)
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	ct, err := s.p.AEADEncrypt(plain, aeadKey, nonce)
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	return domain.EncryptedPayload{Nonce: nonce, Ciphertext: ct}, nil
}

// OpenBytes opens sealed under key. On failure no plaintext is returned.
func (s *Sealer) OpenBytes(sealed domain.EncryptedPayload, key domain.SymmetricKey) ([]byte, error) {
	aeadKey, err := s.aeadKey(key)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(aeadKey)
	return s.p.AEADDecrypt(sealed.Ciphertext, aeadKey, sealed.Nonce)
}

func (s *Sealer) aeadKey(key domain.SymmetricKey) ([]byte, error) {
	if len(key) < minAcceptedKeySize || len(key) > MaxKeySize {
		return nil, ErrKeySize
	}
	return s.p.Hash(crypto.AEADKeySize, []byte(keyContext), key)
}
