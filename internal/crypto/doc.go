// Package crypto is Prism's primitive provider.
//
// Every primitive the protocol layers need is a method on *Provider, and the
// only way to obtain a Provider is Init, which runs once per process. Protocol
// constructors take the handle explicitly, so no primitive can run before
// initialization has finished.
//
// Contents
//
//   - Identity key pairs: an X25519 box key and an Ed25519 signing key
//     generated together (Keypair, PublicFromPrivate)
//   - Anonymous sealing to a public key (SealAnonymous, OpenAnonymous)
//   - Mutually authenticated boxes (BoxSeal, BoxOpen)
//   - XChaCha20-Poly1305 AEAD (AEADEncrypt, AEADDecrypt)
//   - Ed25519 signatures (Sign, Verify)
//   - Directional session keys from an X25519 exchange (KXClientKeys,
//     KXServerKeys) and keyed BLAKE2b derivation (Hash, DeriveSubkey)
//   - Secure random bytes and base64 helpers
//   - Short public-key fingerprints for display and mailbox names
//
// # Errors
//
// Entropy and other provider faults wrap domain.ErrPrimitiveFailure. Every
// failed open reports domain.ErrAuthenticationFailure and nothing more.
package crypto
