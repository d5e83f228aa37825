// Package store provides file-based persistence for Prism's local state.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk and replacing files atomically. All
// methods are concurrency-safe via internal locking. Stored files live under
// the user's configured home directory.
//
// The package includes stores for:
//   - The identity keyring, encrypted under a passphrase (KeyringFileStore)
//   - Named contacts and their current public keys (ContactFileStore)
//
// Session keys are never stored.
package store
