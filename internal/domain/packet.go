package domain

import (
	"encoding/json"
	"fmt"
)

// SignatureSize is the length of an identity signature.
const SignatureSize = 64

// PacketType tags a protocol message and fixes the schema of its data.
type PacketType string

const (
	PacketHandshakeInit     PacketType = "handshake-init"
	PacketHandshakeResponse PacketType = "handshake-response"
	PacketMessage           PacketType = "message"
	PacketReaddress         PacketType = "readdress"
)

// Valid reports whether t is a known packet type.
func (t PacketType) Valid() bool {
	switch t {
	case PacketHandshakeInit, PacketHandshakeResponse, PacketMessage, PacketReaddress:
		return true
	}
	return false
}

// Payload is the data carried by a MessagePacket. Each packet type has exactly
// one concrete payload; see DecodePayload.
type Payload interface {
	// Accepts reports whether the payload is the schema for t.
	Accepts(t PacketType) bool
	validate() error
}

// HandshakeInit opens a conversation. Recipient is the initiator's signature
// over the responder's public key.
type HandshakeInit struct {
	ExchangeKey X25519Public `json:"exchangeKey"`
	Recipient   []byte       `json:"recipient"`
}

func (HandshakeInit) Accepts(t PacketType) bool { return t == PacketHandshakeInit }

func (h HandshakeInit) validate() error {
	if h.ExchangeKey == (X25519Public{}) {
		return fmt.Errorf("%w: handshake-init: missing exchange key", ErrMalformedPacket)
	}
	if len(h.Recipient) != SignatureSize {
		return fmt.Errorf("%w: handshake-init: bad recipient signature length", ErrMalformedPacket)
	}
	return nil
}

// HandshakeResponse answers a HandshakeInit. Confirm is a subkey of the
// responder's receive key so the initiator can check both sides derived the
// same secret.
type HandshakeResponse struct {
	ExchangeKey X25519Public `json:"exchangeKey"`
	Recipient   []byte       `json:"recipient"`
	Confirm     []byte       `json:"confirm"`
}

func (HandshakeResponse) Accepts(t PacketType) bool { return t == PacketHandshakeResponse }

func (h HandshakeResponse) validate() error {
	if h.ExchangeKey == (X25519Public{}) {
		return fmt.Errorf("%w: handshake-response: missing exchange key", ErrMalformedPacket)
	}
	if len(h.Recipient) != SignatureSize {
		return fmt.Errorf("%w: handshake-response: bad recipient signature length", ErrMalformedPacket)
	}
	if len(h.Confirm) == 0 {
		return fmt.Errorf("%w: handshake-response: missing confirmation", ErrMalformedPacket)
	}
	return nil
}

// EncryptedPayload is the output of the symmetric envelope. It is the data of
// both "message" and "readdress" packets.
type EncryptedPayload struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func (EncryptedPayload) Accepts(t PacketType) bool {
	return t == PacketMessage || t == PacketReaddress
}

func (e EncryptedPayload) validate() error {
	if len(e.Nonce) == 0 || len(e.Ciphertext) == 0 {
		return fmt.Errorf("%w: encrypted payload: missing nonce or ciphertext", ErrMalformedPacket)
	}
	return nil
}

// TextMessage is the plaintext of a "message" payload.
type TextMessage struct {
	Message string `json:"message"`
}

// ReaddressRecord is the plaintext of a "readdress" payload. Recipient is a
// signature under the sender's previous key over
// "prism-readdress" || recipient public key || PublicKey, so it binds the new
// key as well as the recipient's.
type ReaddressRecord struct {
	PublicKey PublicKey `json:"publicKey"`
	Recipient []byte    `json:"recipient"`
}

// MessagePacket is the canonical envelope every protocol message conforms to.
type MessagePacket struct {
	Sender    PublicKey
	Type      PacketType
	Timestamp int64
	Data      Payload
}

type wirePacket struct {
	Sender    PublicKey       `json:"sender"`
	Type      PacketType      `json:"type"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// Validate checks that the packet is well formed and that Data matches Type.
func (p MessagePacket) Validate() error {
	if p.Sender.IsZero() {
		return fmt.Errorf("%w: missing sender", ErrMalformedPacket)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown packet type %q", ErrMalformedPacket, p.Type)
	}
	if p.Data == nil || !p.Data.Accepts(p.Type) {
		return fmt.Errorf("%w: data does not match type %q", ErrMalformedPacket, p.Type)
	}
	return p.Data.validate()
}

func (p MessagePacket) MarshalJSON() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wirePacket{
		Sender:    p.Sender,
		Type:      p.Type,
		Timestamp: p.Timestamp,
		Data:      data,
	})
}

// UnmarshalJSON confirms the type tag before decoding data into its schema.
func (p *MessagePacket) UnmarshalJSON(b []byte) error {
	var w wirePacket
	if err := DecodeStrict(b, &w); err != nil {
		return err
	}
	if w.Sender.IsZero() {
		return fmt.Errorf("%w: missing sender", ErrMalformedPacket)
	}
	data, err := DecodePayload(w.Type, w.Data)
	if err != nil {
		return err
	}
	*p = MessagePacket{Sender: w.Sender, Type: w.Type, Timestamp: w.Timestamp, Data: data}
	return nil
}

// DecodePayload decodes raw strictly into the payload schema for t.
func DecodePayload(t PacketType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedPacket)
	}
	var (
		out Payload
		err error
	)
	switch t {
	case PacketHandshakeInit:
		var v HandshakeInit
		err = DecodeStrict(raw, &v)
		out = v
	case PacketHandshakeResponse:
		var v HandshakeResponse
		err = DecodeStrict(raw, &v)
		out = v
	case PacketMessage, PacketReaddress:
		var v EncryptedPayload
		err = DecodeStrict(raw, &v)
		out = v
	default:
		return nil, fmt.Errorf("%w: unknown packet type %q", ErrMalformedPacket, t)
	}
	if err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return out, nil
}
