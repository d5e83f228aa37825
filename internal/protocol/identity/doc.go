// Package identity issues and uses long-term identity key pairs.
//
// An Identity pairs an X25519 box key with an Ed25519 signing key. Both are
// created by one provider call, and Parse refuses halves that do not belong
// together. Rotation never mutates an Identity: it returns a new value whose
// Supersedes field names the key it replaces.
package identity
