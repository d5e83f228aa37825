package sealed

import (
	"encoding/json"
	"errors"
	"fmt"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/util/memzero"
)

// MaxSecretSize bounds the plaintext that may be sealed.
const MaxSecretSize = 512

// ErrTooLarge is returned when a payload exceeds MaxSecretSize.
var ErrTooLarge = errors.New("sealed: payload exceeds secret size limit")

// Courier seals secrets to public keys and opens them with identities.
type Courier struct {
	p *crypto.Provider
}

// New returns a Courier bound to an initialized provider.
func New(p *crypto.Provider) *Courier { return &Courier{p: p} }

// SealTo seals secret so only recipient can open it.
func (c *Courier) SealTo(secret []byte, recipient domain.PublicKey) ([]byte, error) {
	if len(secret) > MaxSecretSize {
		return nil, ErrTooLarge
	}
	return c.p.SealAnonymous(secret, recipient.Box)
}

// Open recovers a secret sealed to own. A ciphertext sealed to anyone else,
// or corrupted in transit, is an authentication failure.
func (c *Courier) Open(ct []byte, own domain.Identity) ([]byte, error) {
	if len(ct) < crypto.SealOverhead {
		return nil, domain.ErrAuthenticationFailure
	}
	return c.p.OpenAnonymous(ct, own.Public.Box, own.Private.Box)
}

// SealValue JSON-encodes v and seals it to recipient.
func (c *Courier) SealValue(v any, recipient domain.PublicKey) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("sealed: encode: %w", err)
	}
	defer memzero.Zero(b)
	return c.SealTo(b, recipient)
}

// OpenValue opens ct with own and decodes the secret into out.
func (c *Courier) OpenValue(ct []byte, own domain.Identity, out any) error {
	b, err := c.Open(ct, own)
	if err != nil {
		return err
	}
	defer memzero.Zero(b)
	return domain.DecodeStrict(b, out)
}
