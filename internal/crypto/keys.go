package crypto

import (
	"crypto/ed25519"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"prism/internal/domain"
)

// Keypair returns a fresh identity: an X25519 box key and an Ed25519 signing
// key, both drawn in this one call.
func (p *Provider) Keypair() (domain.PublicKey, domain.PrivateKey, error) {
	var (
		pub  domain.PublicKey
		priv domain.PrivateKey
	)
	boxPriv, boxPub, err := p.generateX25519()
	if err != nil {
		return pub, priv, err
	}
	edPub, edPriv, err := ed25519.GenerateKey(p.rand)
	if err != nil {
		return pub, priv, fmt.Errorf("%w: ed25519: %v", domain.ErrPrimitiveFailure, err)
	}
	priv.Box = boxPriv
	pub.Box = boxPub
	copy(priv.Sign[:], edPriv)
	copy(pub.Sign[:], edPub)
	return pub, priv, nil
}

// PublicFromPrivate recomputes the public half of an identity. The Ed25519
// half is derived from the seed, not read from the bytes embedded in the
// private key.
func (p *Provider) PublicFromPrivate(priv domain.PrivateKey) (domain.PublicKey, error) {
	var pub domain.PublicKey
	pb, err := curve25519.X25519(priv.Box.Slice(), curve25519.Basepoint)
	if err != nil {
		return pub, fmt.Errorf("%w: x25519: %v", domain.ErrPrimitiveFailure, err)
	}
	copy(pub.Box[:], pb)
	signing := ed25519.NewKeyFromSeed(priv.Sign[:ed25519.SeedSize])
	copy(pub.Sign[:], signing.Public().(ed25519.PublicKey))
	return pub, nil
}

// SigningKeyConsistent reports whether the public half embedded in an
// Ed25519 private key is the one its seed derives.
func (p *Provider) SigningKeyConsistent(priv domain.Ed25519Private) bool {
	derived := ed25519.NewKeyFromSeed(priv[:ed25519.SeedSize])
	return subtle.ConstantTimeCompare(derived, priv[:]) == 1
}

// ExchangeKeypair returns an ephemeral X25519 pair for one key exchange.
func (p *Provider) ExchangeKeypair() (domain.ExchangeKeyPair, error) {
	priv, pub, err := p.generateX25519()
	if err != nil {
		return domain.ExchangeKeyPair{}, err
	}
	return domain.ExchangeKeyPair{Public: pub, Private: priv}, nil
}

// Sign signs msg with the Ed25519 half of an identity.
func (p *Provider) Sign(msg []byte, priv domain.Ed25519Private) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv.Slice()), msg)
}

// Verify reports whether sig is a valid signature of msg under pub. Malformed
// signatures yield false.
func (p *Provider) Verify(msg, sig []byte, pub domain.Ed25519Public) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub.Slice()), msg, sig)
}

// generateX25519 returns a fresh Curve25519 key pair.
// The private key is clamped per RFC 7748.
func (p *Provider) generateX25519() (priv domain.X25519Private, pub domain.X25519Public, err error) {
	b, err := p.RandomBytes(len(priv))
	if err != nil {
		return priv, pub, err
	}
	copy(priv[:], b)
	clamp(&priv)
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return priv, pub, fmt.Errorf("%w: x25519: %v", domain.ErrPrimitiveFailure, err)
	}
	copy(pub[:], pb)
	return priv, pub, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
