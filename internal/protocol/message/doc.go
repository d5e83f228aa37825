// Package message writes and reads message packets.
//
// A message wire is two base64 segments joined by Separator:
//
//	base64(sealedKey) ":" base64(nonce || ciphertext)
//
// The first segment is a fresh per-message SymmetricKey sealed to the
// recipient; the second is the JSON packet sealed under that key. ':' is not
// in the base64 alphabet, so the split is unambiguous. Read checks the shape
// of the wire before any cryptographic work.
package message
