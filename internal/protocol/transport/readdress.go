package transport

import (
	"errors"
	"fmt"

	"prism/internal/domain"
)

const readdressContext = "prism-readdress"

// ErrNotSuccessor is returned when the new identity does not supersede the
// old one.
var ErrNotSuccessor = errors.New("transport: identity does not supersede the old key")

// ComposeReaddress builds the readdress inner packet announcing next to
// recipient. The record is signed with old and sealed under key, the
// conversation's send key.
func (c *Codec) ComposeReaddress(old, next domain.Identity, recipient domain.PublicKey, key domain.SymmetricKey) (domain.InnerPacket, error) {
	if next.Supersedes == nil || !next.Supersedes.Equal(old.Public) {
		return domain.InnerPacket{}, ErrNotSuccessor
	}
	record := domain.ReaddressRecord{
		PublicKey: next.Public,
		Recipient: c.ids.Sign(readdressMessage(recipient, next.Public), old),
	}
	sealed, err := c.env.Seal(record, key)
	if err != nil {
		return domain.InnerPacket{}, err
	}
	return domain.NewInnerPacket(domain.PacketReaddress, sealed), nil
}

// VerifyReaddress opens a readdress packet with key, the conversation's
// receive key, and returns the announced key if its signature verifies under
// trustedOld for own. Any other signer is an authentication failure.
func (c *Codec) VerifyReaddress(inner domain.InnerPacket, key domain.SymmetricKey, trustedOld, own domain.PublicKey) (domain.PublicKey, error) {
	if inner.Type != domain.PacketReaddress {
		return domain.PublicKey{}, fmt.Errorf("%w: want readdress, got %q", domain.ErrMalformedPacket, inner.Type)
	}
	var record domain.ReaddressRecord
	if err := c.env.Open(inner.Payload(), key, &record); err != nil {
		return domain.PublicKey{}, err
	}
	if record.PublicKey.IsZero() || record.PublicKey.Equal(trustedOld) {
		return domain.PublicKey{}, fmt.Errorf("%w: readdress to an unusable key", domain.ErrMalformedPacket)
	}
	if !c.ids.Verify(readdressMessage(own, record.PublicKey), record.Recipient, trustedOld) {
		return domain.PublicKey{}, domain.ErrAuthenticationFailure
	}
	return record.PublicKey, nil
}

// readdressMessage is context || recipient || next.
func readdressMessage(recipient, next domain.PublicKey) []byte {
	msg := make([]byte, 0, len(readdressContext)+2*domain.PublicKeySize)
	msg = append(msg, readdressContext...)
	msg = append(msg, recipient.Bytes()...)
	return append(msg, next.Bytes()...)
}
