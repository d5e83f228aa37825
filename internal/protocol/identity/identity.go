package identity

import (
	"errors"
	"fmt"

	"prism/internal/crypto"
	"prism/internal/domain"
)

// ErrKeyMismatch is returned when a stored public key does not belong to the
// stored private key.
var ErrKeyMismatch = errors.New("public key does not match private key")

// Issuer creates, loads and signs with identities.
type Issuer struct {
	p *crypto.Provider
}

// New returns an Issuer bound to an initialized provider.
func New(p *crypto.Provider) *Issuer { return &Issuer{p: p} }

// Generate creates a fresh identity.
func (i *Issuer) Generate() (domain.Identity, error) {
	pub, priv, err := i.p.Keypair()
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{Public: pub, Private: priv}, nil
}

// Parse builds an identity from the base64 strings produced by key storage.
func (i *Issuer) Parse(pub, priv string) (domain.Identity, error) {
	pk, err := domain.ParsePublicKey(pub)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("identity: public key: %w", err)
	}
	sk, err := domain.ParsePrivateKey(priv)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("identity: private key: %w", err)
	}
	id := domain.Identity{Public: pk, Private: sk}
	if err := i.Check(id); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// Check reports ErrKeyMismatch unless id's halves form one key pair, both
// in the public key and in the Ed25519 private key's embedded public half.
func (i *Issuer) Check(id domain.Identity) error {
	if !i.p.SigningKeyConsistent(id.Private.Sign) {
		return ErrKeyMismatch
	}
	derived, err := i.p.PublicFromPrivate(id.Private)
	if err != nil {
		return err
	}
	if !derived.Equal(id.Public) {
		return ErrKeyMismatch
	}
	return nil
}

// Rotate returns a new identity that supersedes old.
func (i *Issuer) Rotate(old domain.Identity) (domain.Identity, error) {
	next, err := i.Generate()
	if err != nil {
		return domain.Identity{}, err
	}
	prev := old.Public
	next.Supersedes = &prev
	return next, nil
}

// Sign signs payload with id's signing key.
func (i *Issuer) Sign(payload []byte, id domain.Identity) []byte {
	return i.p.Sign(payload, id.Private.Sign)
}

// Verify reports whether sig is id's signature over payload. It never fails
// on malformed input; it returns false.
func (i *Issuer) Verify(payload, sig []byte, pub domain.PublicKey) bool {
	return i.p.Verify(payload, sig, pub.Sign)
}
