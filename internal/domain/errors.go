package domain

import "errors"

// Error taxonomy shared by every protocol layer. Callers match with errors.Is.
var (
	// ErrPrimitiveFailure is returned when the primitive provider itself fails
	// (for example, the entropy source errors). It is never retried silently.
	ErrPrimitiveFailure = errors.New("primitive failure")

	// ErrAuthenticationFailure is returned when a seal, box or signature check
	// fails. It does not distinguish corrupted input from forged input.
	ErrAuthenticationFailure = errors.New("authentication failure")

	// ErrMalformedPacket is returned for structural violations: a missing
	// separator, a wrong field count, bad encoding, or data that does not match
	// the schema implied by the packet type.
	ErrMalformedPacket = errors.New("malformed packet")
)
