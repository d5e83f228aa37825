// Package envelope wraps a payload under a short-lived symmetric key.
//
// Keys are variable length, chosen uniformly between MinKeySize and
// MaxKeySize bytes. Each key is reduced to an AEAD key with keyed BLAKE2b,
// and every Seal draws a fresh XChaCha20-Poly1305 nonce. Payloads are
// serialized as JSON so Open(Seal(p, k), k) yields p.
package envelope
