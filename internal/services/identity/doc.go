// Package identity manages creation, encryption, loading and rotation of the
// local identity.
//
// It enforces passphrase policy, issues key pairs through the protocol
// identity package and persists them via the domain.IdentityStore. The
// keyring in force is published through an atomic pointer: a rotation swaps
// in a new immutable Keyring, so concurrent readers see either the old
// identity or the new one, never a mix.
package identity
