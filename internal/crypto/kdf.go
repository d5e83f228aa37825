package crypto

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"

	"prism/internal/domain"
)

// SessionKeySize is the length of each directional key from a key exchange.
const SessionKeySize = 32

// KXClientKeys derives the client's (rx, tx) session keys from its exchange
// pair and the server's public exchange key.
func (p *Provider) KXClientKeys(own domain.ExchangeKeyPair, server domain.X25519Public) (rx, tx []byte, err error) {
	h, err := kxHash(own.Private, server, own.Public, server)
	if err != nil {
		return nil, nil, err
	}
	return h[:SessionKeySize], h[SessionKeySize:], nil
}

// KXServerKeys derives the server's (rx, tx) session keys. The server's tx
// equals the client's rx and the other way round.
func (p *Provider) KXServerKeys(own domain.ExchangeKeyPair, client domain.X25519Public) (rx, tx []byte, err error) {
	h, err := kxHash(own.Private, client, client, own.Public)
	if err != nil {
		return nil, nil, err
	}
	return h[SessionKeySize:], h[:SessionKeySize], nil
}

// kxHash computes BLAKE2b-512(q || clientPub || serverPub) where q is the
// X25519 shared point.
func kxHash(priv domain.X25519Private, peer, client, server domain.X25519Public) ([]byte, error) {
	q, err := curve25519.X25519(priv.Slice(), peer.Slice())
	if err != nil {
		// Low-order peer key.
		return nil, domain.ErrAuthenticationFailure
	}
	h, _ := blake2b.New512(nil)
	h.Write(q)
	h.Write(client[:])
	h.Write(server[:])
	return h.Sum(nil), nil
}

// Hash returns a size-byte BLAKE2b digest of msg, keyed when key is non-empty.
func (p *Provider) Hash(size int, msg, key []byte) ([]byte, error) {
	h, err := blake2b.New(size, key)
	if err != nil {
		return nil, fmt.Errorf("%w: blake2b: %v", domain.ErrPrimitiveFailure, err)
	}
	h.Write(msg)
	return h.Sum(nil), nil
}

// DeriveSubkey deterministically derives a length-byte subkey from key for
// the given id and context.
func (p *Provider) DeriveSubkey(length int, id uint64, context string, key []byte) ([]byte, error) {
	msg := make([]byte, 8, 8+len(context))
	binary.LittleEndian.PutUint64(msg, id)
	msg = append(msg, context...)
	return p.Hash(length, msg, key)
}
