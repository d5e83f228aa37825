package message

import (
	"fmt"
	"strings"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/protocol/envelope"
	"prism/internal/protocol/sealed"
	"prism/internal/util/memzero"
)

// Separator joins the two segments of a message wire.
const Separator = ":"

// Codec builds and parses message wires.
type Codec struct {
	env  *envelope.Sealer
	seal *sealed.Courier
}

// New returns a Codec bound to an initialized provider.
func New(p *crypto.Provider) *Codec {
	return &Codec{env: envelope.New(p), seal: sealed.New(p)}
}

// Write seals pkt for recipient under a fresh per-message key.
func (c *Codec) Write(recipient domain.PublicKey, pkt domain.MessagePacket) (string, error) {
	if err := pkt.Validate(); err != nil {
		return "", err
	}
	key, err := c.env.NewKey()
	if err != nil {
		return "", err
	}
	defer memzero.Zero(key)

	sealedKey, err := c.seal.SealTo(key, recipient)
	if err != nil {
		return "", err
	}
	body, err := c.env.Seal(pkt, key)
	if err != nil {
		return "", err
	}
	return crypto.B64(sealedKey) + Separator + crypto.B64(append(body.Nonce, body.Ciphertext...)), nil
}

// Read opens a message wire addressed to own.
func (c *Codec) Read(own domain.Identity, wire string) (domain.MessagePacket, error) {
	sealedKey, body, err := split(wire)
	if err != nil {
		return domain.MessagePacket{}, err
	}
	key, err := c.seal.Open(sealedKey, own)
	if err != nil {
		return domain.MessagePacket{}, err
	}
	defer memzero.Zero(key)

	var pkt domain.MessagePacket
	if err := c.env.Open(body, key, &pkt); err != nil {
		return domain.MessagePacket{}, err
	}
	return pkt, nil
}

// split validates the wire's shape and decodes both segments.
func split(wire string) ([]byte, domain.EncryptedPayload, error) {
	parts := strings.Split(wire, Separator)
	if len(parts) != 2 {
		return nil, domain.EncryptedPayload{}, fmt.Errorf("%w: want 2 segments, got %d", domain.ErrMalformedPacket, len(parts))
	}
	sealedKey, err := crypto.UnB64(parts[0])
	if err != nil {
		return nil, domain.EncryptedPayload{}, err
	}
	body, err := crypto.UnB64(parts[1])
	if err != nil {
		return nil, domain.EncryptedPayload{}, err
	}
	if len(sealedKey) <= crypto.SealOverhead || len(body) <= crypto.AEADNonceSize {
		return nil, domain.EncryptedPayload{}, fmt.Errorf("%w: segment too short", domain.ErrMalformedPacket)
	}
	return sealedKey, domain.EncryptedPayload{
		Nonce:      body[:crypto.AEADNonceSize],
		Ciphertext: body[crypto.AEADNonceSize:],
	}, nil
}
