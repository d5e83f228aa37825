// Package sealed moves short secrets to a known recipient.
//
// Sealing is anonymous: the recipient learns the secret but not who sent it.
// It is only meant for symmetric keys and key+nonce tuples, so payloads over
// MaxSecretSize are refused.
package sealed
