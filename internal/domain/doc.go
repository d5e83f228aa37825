// Package domain defines the core data models and contracts shared across Prism.
//
// It contains plain types (keys, identities, packets, relay envelopes), the
// error taxonomy every protocol layer reports through, and the storage and
// relay interfaces implemented elsewhere. It performs no cryptography.
package domain
