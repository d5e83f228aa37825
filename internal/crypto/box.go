package crypto

import (
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"prism/internal/domain"
)

const (
	// BoxNonceSize is the nonce length of an authenticated box.
	BoxNonceSize = 24
	// SealOverhead is the number of bytes SealAnonymous adds to a message.
	SealOverhead = box.AnonymousOverhead
)

// SealAnonymous encrypts msg so only the holder of recipient's private key
// can read it. The ciphertext does not identify the sender.
func (p *Provider) SealAnonymous(msg []byte, recipient domain.X25519Public) ([]byte, error) {
	out, err := box.SealAnonymous(nil, msg, (*[32]byte)(&recipient), p.rand)
	if err != nil {
		return nil, fmt.Errorf("%w: seal: %v", domain.ErrPrimitiveFailure, err)
	}
	return out, nil
}

// OpenAnonymous opens a SealAnonymous ciphertext with the recipient's pair.
func (p *Provider) OpenAnonymous(ct []byte, pub domain.X25519Public, priv domain.X25519Private) ([]byte, error) {
	msg, ok := box.OpenAnonymous(nil, ct, (*[32]byte)(&pub), (*[32]byte)(&priv))
	if !ok {
		return nil, domain.ErrAuthenticationFailure
	}
	return msg, nil
}

// BoxSeal encrypts and authenticates msg from own to peer under nonce.
func (p *Provider) BoxSeal(msg, nonce []byte, peer domain.X25519Public, own domain.X25519Private) ([]byte, error) {
	n, err := boxNonce(nonce)
	if err != nil {
		return nil, err
	}
	return box.Seal(nil, msg, n, (*[32]byte)(&peer), (*[32]byte)(&own)), nil
}

// BoxOpen opens a box sealed by peer for own. Any mismatch in peer, own,
// nonce or ciphertext is an authentication failure.
func (p *Provider) BoxOpen(ct, nonce []byte, peer domain.X25519Public, own domain.X25519Private) ([]byte, error) {
	n, err := boxNonce(nonce)
	if err != nil {
		return nil, domain.ErrAuthenticationFailure
	}
	msg, ok := box.Open(nil, ct, n, (*[32]byte)(&peer), (*[32]byte)(&own))
	if !ok {
		return nil, domain.ErrAuthenticationFailure
	}
	return msg, nil
}

func boxNonce(nonce []byte) (*[BoxNonceSize]byte, error) {
	if len(nonce) != BoxNonceSize {
		return nil, fmt.Errorf("%w: box nonce must be %d bytes", domain.ErrPrimitiveFailure, BoxNonceSize)
	}
	var n [BoxNonceSize]byte
	copy(n[:], nonce)
	return &n, nil
}
