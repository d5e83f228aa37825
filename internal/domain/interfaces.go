package domain

import "context"

// IdentityStore persists the local keyring, encrypted under a passphrase.
type IdentityStore interface {
	SaveKeyring(passphrase string, kr Keyring) error
	LoadKeyring(passphrase string) (Keyring, error)
	Exists() bool
}

// Contact is a named peer key.
type Contact struct {
	Name string    `json:"name"`
	Key  PublicKey `json:"key"`
}

// ContactStore maps names to peer public keys and follows peers through
// readdressing.
type ContactStore interface {
	AddContact(name string, key PublicKey) error
	Resolve(ref string) (PublicKey, error)
	NameOf(key PublicKey) (string, bool)
	ReplaceKey(old, next PublicKey) error
	Contacts() ([]Contact, error)
}

// IdentityHolder exposes the identities currently in force. Implementations
// must return a consistent snapshot even while a rotation is in progress.
type IdentityHolder interface {
	Current() (Identity, bool)
	Previous() (Identity, bool)
}

// IdentityService creates, loads and rotates the local identity.
type IdentityService interface {
	IdentityHolder
	Generate(passphrase string) (Identity, Fingerprint, error)
	Load(passphrase string) (Identity, error)
	Rotate(passphrase string) (old, next Identity, err error)
	Retire(passphrase string) error
	Fingerprint() (Fingerprint, error)
}

// HandshakeOutcome reports what a handshake packet did. Reply is the wire
// string to return to Peer, empty when no reply is due.
type HandshakeOutcome struct {
	Peer  PublicKey
	Type  PacketType
	Reply string
}

// SessionService drives per-peer conversations: the handshake, session-key
// envelopes and readdressing.
type SessionService interface {
	Initiate(peer PublicKey) (string, error)
	HandleHandshake(wire string) (HandshakeOutcome, error)

	Seal(peer PublicKey, t PacketType, v any) (InnerPacket, error)
	Open(peer PublicKey, inner InnerPacket, out any) error

	AnnounceReaddress(peer PublicKey, old, next Identity) (InnerPacket, error)
	CompleteReaddress(peer PublicKey)
	AcceptReaddress(peer PublicKey, inner InnerPacket) (PublicKey, error)

	Trusted(key PublicKey) bool
	Established() []PublicKey
}

// DecryptedMessage is a received packet after every layer has been opened.
// For a readdress, From is the announced key and Replaces the key it
// supersedes.
type DecryptedMessage struct {
	From      PublicKey  `json:"from"`
	Replaces  PublicKey  `json:"replaces"`
	Tag       string     `json:"tag,omitempty"`
	Type      PacketType `json:"type"`
	Text      string     `json:"text,omitempty"`
	Timestamp int64      `json:"timestamp,omitempty"`
}

// MessageService sends and receives protocol traffic through a relay.
type MessageService interface {
	StartSession(ctx context.Context, peer PublicKey) error
	Send(ctx context.Context, peer PublicKey, text string) error
	Readdress(ctx context.Context, old, next Identity) error
	Receive(ctx context.Context, limit int) ([]DecryptedMessage, error)
}

// EnvelopeKind says how a relayed wire string must be opened.
type EnvelopeKind string

const (
	// EnvelopePacket carries a message wire (handshake traffic).
	EnvelopePacket EnvelopeKind = "packet"
	// EnvelopeTransport carries a transport wire.
	EnvelopeTransport EnvelopeKind = "transport"
)

// Envelope is the unit a relay stores and forwards. The relay never sees
// anything but opaque wire strings.
type Envelope struct {
	Kind      EnvelopeKind `json:"kind"`
	Wire      string       `json:"wire"`
	Timestamp int64        `json:"timestamp,omitempty"`
}

// RelayClient is how we talk to the store-and-forward relay. Mailboxes are
// named by recipient fingerprint.
type RelayClient interface {
	Post(ctx context.Context, mailbox string, env Envelope) error
	Fetch(ctx context.Context, mailbox string, limit int) ([]Envelope, error)
	Ack(ctx context.Context, mailbox string, count int) error
}
