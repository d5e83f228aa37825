package crypto

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"prism/internal/domain"
)

const (
	// AEADKeySize is the key length of the AEAD.
	AEADKeySize = chacha20poly1305.KeySize
	// AEADNonceSize is the XChaCha20-Poly1305 nonce length.
	AEADNonceSize = chacha20poly1305.NonceSizeX
)

// AEADEncrypt seals msg under key and nonce with XChaCha20-Poly1305.
func (p *Provider) AEADEncrypt(msg, key, nonce []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: aead: %v", domain.ErrPrimitiveFailure, err)
	}
	if len(nonce) != AEADNonceSize {
		return nil, fmt.Errorf("%w: aead nonce must be %d bytes", domain.ErrPrimitiveFailure, AEADNonceSize)
	}
	return aead.Seal(nil, nonce, msg, nil), nil
}

// AEADDecrypt opens ct. A wrong key, wrong nonce or tampered ciphertext is an
// authentication failure and no plaintext is returned.
func (p *Provider) AEADDecrypt(ct, key, nonce []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: aead: %v", domain.ErrPrimitiveFailure, err)
	}
	if len(nonce) != AEADNonceSize {
		return nil, domain.ErrAuthenticationFailure
	}
	msg, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, domain.ErrAuthenticationFailure
	}
	return msg, nil
}
