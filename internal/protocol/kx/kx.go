package kx

import (
	"crypto/subtle"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/util/memzero"
)

const (
	// ConfirmContext is the derivation context of handshake confirmations.
	ConfirmContext = "prismcfm"
	// SubkeySize is the length of keys from Subkey.
	SubkeySize = 32

	subkeyID = 1
)

// Exchange performs the session key exchange.
type Exchange struct {
	p *crypto.Provider
}

// New returns an Exchange bound to an initialized provider.
func New(p *crypto.Provider) *Exchange { return &Exchange{p: p} }

// GeneratePair returns a fresh single-use exchange pair.
func (x *Exchange) GeneratePair() (domain.ExchangeKeyPair, error) {
	return x.p.ExchangeKeypair()
}

// DeriveAsInitiator derives the initiator's session keys.
func (x *Exchange) DeriveAsInitiator(own domain.ExchangeKeyPair, peer domain.X25519Public) (domain.SessionKeys, error) {
	rx, tx, err := x.p.KXClientKeys(own, peer)
	if err != nil {
		return domain.SessionKeys{}, err
	}
	return domain.SessionKeys{Send: tx, Receive: rx}, nil
}

// DeriveAsResponder derives the responder's session keys.
func (x *Exchange) DeriveAsResponder(own domain.ExchangeKeyPair, peer domain.X25519Public) (domain.SessionKeys, error) {
	rx, tx, err := x.p.KXServerKeys(own, peer)
	if err != nil {
		return domain.SessionKeys{}, err
	}
	return domain.SessionKeys{Send: tx, Receive: rx}, nil
}

// Subkey deterministically derives a SubkeySize key from key and context.
func (x *Exchange) Subkey(key domain.SymmetricKey, context string) ([]byte, error) {
	return x.p.DeriveSubkey(SubkeySize, subkeyID, context, key)
}

// Confirm reports whether tag is the confirmation subkey of key. The
// comparison is constant time.
func (x *Exchange) Confirm(key domain.SymmetricKey, tag []byte) bool {
	want, err := x.Subkey(key, ConfirmContext)
	if err != nil {
		return false
	}
	defer memzero.Zero(want)
	return subtle.ConstantTimeCompare(want, tag) == 1
}
