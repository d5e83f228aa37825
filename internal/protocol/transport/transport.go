package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/protocol/envelope"
	"prism/internal/protocol/identity"
	"prism/internal/protocol/sealed"
	"prism/internal/util/memzero"
)

// Separator joins the two segments of a transport wire.
const Separator = ":"

// ErrEmptyTag is returned by Build when no routing tag is given.
var ErrEmptyTag = errors.New("transport: empty routing tag")

// outerPacket is the layer sealed under the per-packet SymmetricKey.
type outerPacket struct {
	Sender string `json:"sender"`
	Nonce  []byte `json:"nonce"`
	Box    []byte `json:"box"`
}

// keyAndNonce is the secret sealed to the recipient.
type keyAndNonce struct {
	Key   []byte `json:"key"`
	Nonce []byte `json:"nonce"`
}

// Codec builds and opens transport wires.
type Codec struct {
	p    *crypto.Provider
	env  *envelope.Sealer
	seal *sealed.Courier
	ids  *identity.Issuer
	now  func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the clock used to timestamp inner packets.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New returns a Codec bound to an initialized provider.
func New(p *crypto.Provider, opts ...Option) *Codec {
	c := &Codec{
		p:    p,
		env:  envelope.New(p),
		seal: sealed.New(p),
		ids:  identity.New(p),
		now:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Build timestamps inner and wraps it for recipient, authored by own and
// routed under routingTag.
func (c *Codec) Build(inner domain.InnerPacket, recipient domain.PublicKey, own domain.Identity, routingTag string) (string, error) {
	if routingTag == "" {
		return "", ErrEmptyTag
	}
	if err := inner.Validate(); err != nil {
		return "", err
	}
	inner.Timestamp = c.now().UnixMilli()
	plain, err := json.Marshal(inner)
	if err != nil {
		return "", fmt.Errorf("transport: encode inner: %w", err)
	}

	boxNonce, err := c.p.RandomBytes(crypto.BoxNonceSize)
	if err != nil {
		return "", err
	}
	box, err := c.p.BoxSeal(plain, boxNonce, recipient.Box, own.Private.Box)
	if err != nil {
		return "", err
	}
	outer := outerPacket{
		Sender: domain.Address{Tag: routingTag, Key: own.Public}.String(),
		Nonce:  boxNonce,
		Box:    box,
	}

	key, err := c.env.NewKey()
	if err != nil {
		return "", err
	}
	defer memzero.Zero(key)
	body, err := c.env.Seal(outer, key)
	if err != nil {
		return "", err
	}
	head, err := c.seal.SealValue(keyAndNonce{Key: key, Nonce: body.Nonce}, recipient)
	if err != nil {
		return "", err
	}
	return crypto.B64(head) + Separator + crypto.B64(body.Ciphertext), nil
}

// Open unwraps a transport wire addressed to own.
func (c *Codec) Open(wire string, own domain.Identity) (domain.TransportPacket, error) {
	head, body, err := split(wire)
	if err != nil {
		return domain.TransportPacket{}, err
	}

	var kn keyAndNonce
	if err := c.seal.OpenValue(head, own, &kn); err != nil {
		return domain.TransportPacket{}, err
	}
	defer memzero.Zero(kn.Key)

	var outer outerPacket
	if err := c.env.Open(domain.EncryptedPayload{Nonce: kn.Nonce, Ciphertext: body}, kn.Key, &outer); err != nil {
		return domain.TransportPacket{}, err
	}
	sender, err := domain.ParseAddress(outer.Sender)
	if err != nil {
		return domain.TransportPacket{}, err
	}

	plain, err := c.p.BoxOpen(outer.Box, outer.Nonce, sender.Key.Box, own.Private.Box)
	if err != nil {
		return domain.TransportPacket{}, err
	}
	defer memzero.Zero(plain)

	var inner domain.InnerPacket
	if err := domain.DecodeStrict(plain, &inner); err != nil {
		return domain.TransportPacket{}, err
	}
	if err := inner.Validate(); err != nil {
		return domain.TransportPacket{}, err
	}
	return domain.TransportPacket{Sender: sender, Nonce: outer.Nonce, Box: inner}, nil
}

func split(wire string) (head, body []byte, err error) {
	parts := strings.Split(wire, Separator)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("%w: want 2 segments, got %d", domain.ErrMalformedPacket, len(parts))
	}
	if head, err = crypto.UnB64(parts[0]); err != nil {
		return nil, nil, err
	}
	if body, err = crypto.UnB64(parts[1]); err != nil {
		return nil, nil, err
	}
	if len(head) <= crypto.SealOverhead || len(body) == 0 {
		return nil, nil, fmt.Errorf("%w: segment too short", domain.ErrMalformedPacket)
	}
	return head, body, nil
}
