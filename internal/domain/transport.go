package domain

import (
	"fmt"
	"strings"
)

// Address is a routable sender address: a relay routing tag and the sender's
// current public key. Its string form is "<tag>:<base64 key>".
type Address struct {
	Tag string
	Key PublicKey
}

func (a Address) String() string { return a.Tag + ":" + a.Key.String() }

func (a Address) MarshalText() ([]byte, error) {
	if a.Tag == "" {
		return nil, fmt.Errorf("%w: address: empty routing tag", ErrMalformedPacket)
	}
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress splits s at its last ':' since base64 never contains one, so
// routing tags such as "host:port" survive.
func ParseAddress(s string) (Address, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return Address{}, fmt.Errorf("%w: address %q: missing routing tag", ErrMalformedPacket, s)
	}
	key, err := ParsePublicKey(s[i+1:])
	if err != nil {
		return Address{}, err
	}
	return Address{Tag: s[:i], Key: key}, nil
}

// InnerPacket is the authenticated-box content of a transport packet. Nonce
// and Data are the session-key envelope of the packet's payload.
type InnerPacket struct {
	Type      PacketType `json:"type"`
	Timestamp int64      `json:"timestamp"`
	Nonce     []byte     `json:"nonce"`
	Data      []byte     `json:"data"`
}

// NewInnerPacket builds an untimestamped inner packet around an envelope.
func NewInnerPacket(t PacketType, sealed EncryptedPayload) InnerPacket {
	return InnerPacket{Type: t, Nonce: sealed.Nonce, Data: sealed.Ciphertext}
}

// Payload returns the session-key envelope carried by the packet.
func (p InnerPacket) Payload() EncryptedPayload {
	return EncryptedPayload{Nonce: p.Nonce, Ciphertext: p.Data}
}

// Validate checks that the inner packet is structurally sound.
func (p InnerPacket) Validate() error {
	if p.Type != PacketMessage && p.Type != PacketReaddress {
		return fmt.Errorf("%w: inner packet: unexpected type %q", ErrMalformedPacket, p.Type)
	}
	return p.Payload().validate()
}

// TransportPacket is an opened transport packet. Box holds the opened inner
// packet; Nonce is the box nonce.
type TransportPacket struct {
	Sender Address
	Nonce  []byte
	Box    InnerPacket
}
