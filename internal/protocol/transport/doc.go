// Package transport builds and opens transport packets, the outermost layer
// of the protocol, and the readdress records carried inside them.
//
// # Layers
//
// Build nests three layers around an inner packet {type, timestamp, nonce,
// data}:
//
//  1. An authenticated box from the sender's identity box key to the
//     recipient's. This proves authorship.
//  2. The outer packet {sender: "<tag>:<publicKey>", nonce, box} sealed
//     under a fresh SymmetricKey.
//  3. That key and its nonce sealed anonymously to the recipient.
//
// The wire is base64(sealedKeyAndNonce) ":" base64(outerCiphertext).
//
// Open reverses the layers and opens the box with the public key claimed in
// sender. A claimed key that did not author the box fails with
// domain.ErrAuthenticationFailure. Open proves the sender holds the claimed
// key; deciding whether that key is a trusted peer is the caller's job.
//
// # Readdress
//
// ComposeReaddress signs, under the old identity, the recipient's public key
// bound to the new public key, and seals the record under the conversation
// key. VerifyReaddress accepts the new key only if that signature verifies
// under the old key the recipient already trusts.
package transport
