package domain

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// ------------- X25519 -------------

// X25519Private is a Curve25519 private scalar.
type X25519Private [32]byte

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

func (k X25519Private) Slice() []byte { return k[:] }
func (k X25519Public) Slice() []byte  { return k[:] }

// MarshalText encodes the key as standard base64.
func (k X25519Public) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(k[:])), nil
}

// UnmarshalText decodes a standard base64 key of exactly 32 bytes.
func (k *X25519Public) UnmarshalText(text []byte) error {
	return decodeFixed(k[:], text, "X25519 public")
}

// ------------- Ed25519 -------------

// Ed25519Private is an Ed25519 signing key (crypto/ed25519 layout: seed || public).
type Ed25519Private [64]byte

// Ed25519Public is an Ed25519 verification key.
type Ed25519Public [32]byte

func (k Ed25519Private) Slice() []byte { return k[:] }
func (k Ed25519Public) Slice() []byte  { return k[:] }

// ------------- Identity keys -------------

const (
	// PublicKeySize is the length of an encoded PublicKey: box key then signing key.
	PublicKeySize = 32 + 32
	// PrivateKeySize is the length of an encoded PrivateKey: box scalar then signing key.
	PrivateKeySize = 32 + 64
)

// PublicKey is a party's long-term public identity. The box half is used for
// sealing and authenticated boxes, the signing half for signatures. Both
// halves always come from the same key generation call.
type PublicKey struct {
	Box  X25519Public
	Sign Ed25519Public
}

// Bytes returns Box || Sign.
func (k PublicKey) Bytes() []byte {
	out := make([]byte, 0, PublicKeySize)
	out = append(out, k.Box[:]...)
	return append(out, k.Sign[:]...)
}

// String returns the standard base64 form used on the wire and in addresses.
func (k PublicKey) String() string { return base64.StdEncoding.EncodeToString(k.Bytes()) }

// IsZero reports whether k is the zero key.
func (k PublicKey) IsZero() bool { return k == PublicKey{} }

// Equal compares two public keys in constant time.
func (k PublicKey) Equal(o PublicKey) bool {
	return subtle.ConstantTimeCompare(k.Bytes(), o.Bytes()) == 1
}

func (k PublicKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PublicKey) UnmarshalText(text []byte) error {
	var raw [PublicKeySize]byte
	if err := decodeFixed(raw[:], text, "public key"); err != nil {
		return err
	}
	copy(k.Box[:], raw[:32])
	copy(k.Sign[:], raw[32:])
	return nil
}

// ParsePublicKey decodes the base64 form produced by PublicKey.String.
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	if err := k.UnmarshalText([]byte(s)); err != nil {
		return PublicKey{}, err
	}
	return k, nil
}

// PrivateKey is the secret half of an identity. It never appears in a packet.
type PrivateKey struct {
	Box  X25519Private
	Sign Ed25519Private
}

// String returns the standard base64 encoding of Box || Sign. Only key storage
// should ever call it.
func (k PrivateKey) String() string {
	out := make([]byte, 0, PrivateKeySize)
	out = append(out, k.Box[:]...)
	out = append(out, k.Sign[:]...)
	return base64.StdEncoding.EncodeToString(out)
}

func (k PrivateKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PrivateKey) UnmarshalText(text []byte) error {
	var raw [PrivateKeySize]byte
	if err := decodeFixed(raw[:], text, "private key"); err != nil {
		return err
	}
	copy(k.Box[:], raw[:32])
	copy(k.Sign[:], raw[32:])
	return nil
}

// ParsePrivateKey decodes the base64 form produced by PrivateKey.String.
func ParsePrivateKey(s string) (PrivateKey, error) {
	var k PrivateKey
	if err := k.UnmarshalText([]byte(s)); err != nil {
		return PrivateKey{}, err
	}
	return k, nil
}

// ------------- Session keys -------------

// SymmetricKey is a short-lived shared secret of variable length.
type SymmetricKey []byte

// ExchangeKeyPair is an ephemeral key-exchange pair, distinct from the
// long-term identity and used for exactly one conversation.
type ExchangeKeyPair struct {
	Public  X25519Public
	Private X25519Private
}

// SessionKeys are the directional keys produced by a completed exchange.
// For parties A and B: A.Send == B.Receive and B.Send == A.Receive.
type SessionKeys struct {
	Send    SymmetricKey
	Receive SymmetricKey
}

func decodeFixed(dst, text []byte, what string) error {
	raw, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPacket, what, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%w: %s: want %d bytes, got %d", ErrMalformedPacket, what, len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
