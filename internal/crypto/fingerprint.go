package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"prism/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

// FingerprintKey fingerprints both halves of an identity public key. The
// result also names the key's relay mailbox.
func FingerprintKey(pub domain.PublicKey) domain.Fingerprint {
	return domain.Fingerprint(Fingerprint(pub.Bytes()))
}
