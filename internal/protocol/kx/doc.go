// Package kx derives directional session keys from ephemeral X25519 pairs.
//
// The initiator takes the client role and the responder the server role of
// a BLAKE2b-512 key exchange, so that
//
//	initiator.Send == responder.Receive
//	responder.Send == initiator.Receive
//
// The roles are not interchangeable: two initiators derive keys that do not
// cross-match. Which side is which follows from who sent handshake-init.
//
// Subkey gives a deterministic key-derivation step used to confirm that both
// sides computed the same secret without revealing it.
package kx
