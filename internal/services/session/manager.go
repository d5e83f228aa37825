package session

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/protocol/envelope"
	"prism/internal/protocol/identity"
	"prism/internal/protocol/kx"
	"prism/internal/protocol/message"
	"prism/internal/protocol/transport"
	"prism/internal/util/memzero"
)

const handshakeContext = "prism-handshake"

// State is the lifecycle stage of a conversation.
type State int

const (
	StateUninitialized State = iota
	StateEstablished
	StateReaddressing
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateEstablished:
		return "established"
	case StateReaddressing:
		return "readdressing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrNoIdentity is returned when no local identity has been loaded.
	ErrNoIdentity = errors.New("session: no local identity")
	// ErrNoSession is returned when the peer has no established conversation.
	ErrNoSession = errors.New("session: no established conversation with peer")
	// ErrUnexpectedHandshake is returned for a handshake-response nobody asked for.
	ErrUnexpectedHandshake = errors.New("session: unexpected handshake response")
	// ErrReaddressRejected wraps the reason a readdress was discarded.
	ErrReaddressRejected = errors.New("session: readdress rejected")
	// ErrHandshakeCollision is returned for an init that crossed our own and
	// loses the tie-break. The peer will answer our init instead.
	ErrHandshakeCollision = errors.New("session: crossed handshake, waiting for response")
)

type conversation struct {
	peer    domain.PublicKey
	state   State
	pending *domain.ExchangeKeyPair // initiator side, awaiting a response
	keys    domain.SessionKeys
}

// Manager holds every conversation of the local party.
type Manager struct {
	ids       domain.IdentityHolder
	issuer    *identity.Issuer
	messages  *message.Codec
	exchange  *kx.Exchange
	env       *envelope.Sealer
	transport *transport.Codec
	log       logrus.FieldLogger

	mu    sync.Mutex
	convs map[domain.PublicKey]*conversation
}

// New returns a Manager for the identities held by ids.
func New(p *crypto.Provider, ids domain.IdentityHolder, tc *transport.Codec, log logrus.FieldLogger) *Manager {
	return &Manager{
		ids:       ids,
		issuer:    identity.New(p),
		messages:  message.New(p),
		exchange:  kx.New(p),
		env:       envelope.New(p),
		transport: tc,
		log:       log,
		convs:     make(map[domain.PublicKey]*conversation),
	}
}

// Initiate starts a handshake with peer and returns the handshake-init wire.
// An established conversation keeps its keys until the response arrives.
func (m *Manager) Initiate(peer domain.PublicKey) (string, error) {
	own, ok := m.ids.Current()
	if !ok {
		return "", ErrNoIdentity
	}
	pair, err := m.exchange.GeneratePair()
	if err != nil {
		return "", err
	}
	pkt := domain.MessagePacket{
		Sender: own.Public,
		Type:   domain.PacketHandshakeInit,
		Data: domain.HandshakeInit{
			ExchangeKey: pair.Public,
			Recipient:   m.issuer.Sign(handshakeMessage(peer, pair.Public), own),
		},
	}
	wire, err := m.messages.Write(peer, pkt)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	conv := m.convs[peer]
	if conv == nil {
		conv = &conversation{peer: peer, state: StateUninitialized}
		m.convs[peer] = conv
	}
	if conv.pending != nil {
		memzero.Zero(conv.pending.Private[:])
	}
	conv.pending = &pair

	m.log.WithField("peer", crypto.FingerprintKey(peer)).Debug("handshake initiated")
	return wire, nil
}

// HandleHandshake reads a handshake wire addressed to the current or the
// previous identity and advances the matching conversation.
func (m *Manager) HandleHandshake(wire string) (domain.HandshakeOutcome, error) {
	pkt, own, err := m.read(wire)
	if err != nil {
		return domain.HandshakeOutcome{}, err
	}
	switch data := pkt.Data.(type) {
	case domain.HandshakeInit:
		reply, err := m.accept(own, pkt.Sender, data)
		if err != nil {
			return domain.HandshakeOutcome{}, err
		}
		return domain.HandshakeOutcome{Peer: pkt.Sender, Type: pkt.Type, Reply: reply}, nil
	case domain.HandshakeResponse:
		if err := m.complete(own, pkt.Sender, data); err != nil {
			return domain.HandshakeOutcome{}, err
		}
		return domain.HandshakeOutcome{Peer: pkt.Sender, Type: pkt.Type}, nil
	default:
		return domain.HandshakeOutcome{}, fmt.Errorf("%w: %q is not a handshake", domain.ErrMalformedPacket, pkt.Type)
	}
}

// read opens wire with the current identity, falling back to the previous one.
func (m *Manager) read(wire string) (domain.MessagePacket, domain.Identity, error) {
	cur, ok := m.ids.Current()
	if !ok {
		return domain.MessagePacket{}, domain.Identity{}, ErrNoIdentity
	}
	pkt, err := m.messages.Read(cur, wire)
	if err == nil || !errors.Is(err, domain.ErrAuthenticationFailure) {
		return pkt, cur, err
	}
	if prev, ok := m.ids.Previous(); ok {
		if pkt, perr := m.messages.Read(prev, wire); perr == nil {
			return pkt, prev, nil
		}
	}
	return domain.MessagePacket{}, domain.Identity{}, err
}

// accept answers a handshake-init as responder.
func (m *Manager) accept(own domain.Identity, peer domain.PublicKey, init domain.HandshakeInit) (string, error) {
	if !m.issuer.Verify(handshakeMessage(own.Public, init.ExchangeKey), init.Recipient, peer) {
		return "", domain.ErrAuthenticationFailure
	}
	pair, err := m.exchange.GeneratePair()
	if err != nil {
		return "", err
	}
	defer memzero.Zero(pair.Private[:])

	keys, err := m.exchange.DeriveAsResponder(pair, init.ExchangeKey)
	if err != nil {
		return "", err
	}
	confirm, err := m.exchange.Subkey(keys.Receive, kx.ConfirmContext)
	if err != nil {
		return "", err
	}
	reply, err := m.messages.Write(peer, domain.MessagePacket{
		Sender: own.Public,
		Type:   domain.PacketHandshakeResponse,
		Data: domain.HandshakeResponse{
			ExchangeKey: pair.Public,
			Recipient:   m.issuer.Sign(handshakeMessage(peer, pair.Public), own),
			Confirm:     confirm,
		},
	})
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.convs[peer]
	// Crossed inits: the one sent by the lower key wins. Checked under the
	// same lock as the replacement so a concurrent Initiate is never lost.
	if old != nil && old.pending != nil && bytes.Compare(own.Public.Bytes(), peer.Bytes()) < 0 {
		wipeKeys(keys)
		return "", ErrHandshakeCollision
	}
	if old != nil {
		wipeKeys(old.keys)
		if old.pending != nil {
			memzero.Zero(old.pending.Private[:])
		}
	}
	m.convs[peer] = &conversation{peer: peer, state: StateEstablished, keys: keys}
	m.log.WithField("peer", crypto.FingerprintKey(peer)).Info("conversation established as responder")
	return reply, nil
}

// complete finishes a handshake this side initiated.
func (m *Manager) complete(own domain.Identity, peer domain.PublicKey, resp domain.HandshakeResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := m.convs[peer]
	if conv == nil || conv.pending == nil {
		return ErrUnexpectedHandshake
	}
	if !m.issuer.Verify(handshakeMessage(own.Public, resp.ExchangeKey), resp.Recipient, peer) {
		return domain.ErrAuthenticationFailure
	}
	keys, err := m.exchange.DeriveAsInitiator(*conv.pending, resp.ExchangeKey)
	if err != nil {
		return err
	}
	if !m.exchange.Confirm(keys.Send, resp.Confirm) {
		wipeKeys(keys)
		return domain.ErrAuthenticationFailure
	}
	memzero.Zero(conv.pending.Private[:])
	conv.pending = nil
	wipeKeys(conv.keys)
	conv.keys = keys
	conv.state = StateEstablished
	m.log.WithField("peer", crypto.FingerprintKey(peer)).Info("conversation established as initiator")
	return nil
}

// Seal encrypts v under the conversation's send key as an inner packet of
// type t.
func (m *Manager) Seal(peer domain.PublicKey, t domain.PacketType, v any) (domain.InnerPacket, error) {
	keys, err := m.keys(peer)
	if err != nil {
		return domain.InnerPacket{}, err
	}
	defer wipeKeys(keys)
	sealed, err := m.env.Seal(v, keys.Send)
	if err != nil {
		return domain.InnerPacket{}, err
	}
	return domain.NewInnerPacket(t, sealed), nil
}

// Open decrypts an inner packet from peer under the receive key.
func (m *Manager) Open(peer domain.PublicKey, inner domain.InnerPacket, out any) error {
	keys, err := m.keys(peer)
	if err != nil {
		return err
	}
	defer wipeKeys(keys)
	return m.env.Open(inner.Payload(), keys.Receive, out)
}

func (m *Manager) keys(peer domain.PublicKey) (domain.SessionKeys, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv := m.convs[peer]
	if conv == nil || conv.state == StateUninitialized {
		return domain.SessionKeys{}, ErrNoSession
	}
	// Callers get copies; a re-handshake wipes the stored keys.
	return domain.SessionKeys{
		Send:    bytes.Clone(conv.keys.Send),
		Receive: bytes.Clone(conv.keys.Receive),
	}, nil
}

// AnnounceReaddress builds the readdress packet telling peer that next
// replaces old, and marks the conversation as readdressing.
func (m *Manager) AnnounceReaddress(peer domain.PublicKey, old, next domain.Identity) (domain.InnerPacket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := m.convs[peer]
	if conv == nil || conv.state != StateEstablished {
		return domain.InnerPacket{}, ErrNoSession
	}
	inner, err := m.transport.ComposeReaddress(old, next, peer, conv.keys.Send)
	if err != nil {
		return domain.InnerPacket{}, err
	}
	conv.state = StateReaddressing
	return inner, nil
}

// CompleteReaddress returns a readdressing conversation to Established once
// the announcement is on its way.
func (m *Manager) CompleteReaddress(peer domain.PublicKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv := m.convs[peer]; conv != nil && conv.state == StateReaddressing {
		conv.state = StateEstablished
	}
}

// AcceptReaddress verifies a readdress from peer against the key already
// trusted for it. On success the conversation moves to the announced key,
// which is returned. On failure the old key stays in force and the request
// is discarded.
func (m *Manager) AcceptReaddress(peer domain.PublicKey, inner domain.InnerPacket) (domain.PublicKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.log.WithField("peer", crypto.FingerprintKey(peer))
	conv := m.convs[peer]
	if conv == nil || conv.state == StateUninitialized {
		log.Warn("readdress from unknown peer discarded")
		return domain.PublicKey{}, fmt.Errorf("%w: %w", ErrReaddressRejected, ErrNoSession)
	}

	next, err := m.verifyReaddress(conv, inner)
	if err != nil {
		log.WithError(err).Warn("readdress rejected; keeping previous key")
		return domain.PublicKey{}, fmt.Errorf("%w: %w", ErrReaddressRejected, err)
	}
	if _, taken := m.convs[next]; taken {
		log.Warn("readdress to a key already in use discarded")
		return domain.PublicKey{}, fmt.Errorf("%w: key already in use", ErrReaddressRejected)
	}

	delete(m.convs, peer)
	conv.peer = next
	m.convs[next] = conv
	log.WithField("new", crypto.FingerprintKey(next)).Info("peer readdressed")
	return next, nil
}

// verifyReaddress checks the record against the current identity and then
// the previous one, since the peer may not have seen our own rotation yet.
func (m *Manager) verifyReaddress(conv *conversation, inner domain.InnerPacket) (domain.PublicKey, error) {
	cur, ok := m.ids.Current()
	if !ok {
		return domain.PublicKey{}, ErrNoIdentity
	}
	next, err := m.transport.VerifyReaddress(inner, conv.keys.Receive, conv.peer, cur.Public)
	if err == nil || !errors.Is(err, domain.ErrAuthenticationFailure) {
		return next, err
	}
	if prev, ok := m.ids.Previous(); ok {
		if next, perr := m.transport.VerifyReaddress(inner, conv.keys.Receive, conv.peer, prev.Public); perr == nil {
			return next, nil
		}
	}
	return domain.PublicKey{}, err
}

// Trusted reports whether key belongs to a peer with an established
// conversation. Transport packets from any other key are not accepted.
func (m *Manager) Trusted(key domain.PublicKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv := m.convs[key]
	return conv != nil && conv.state != StateUninitialized
}

// State returns the state of the conversation with peer.
func (m *Manager) State(peer domain.PublicKey) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv := m.convs[peer]; conv != nil {
		return conv.state
	}
	return StateUninitialized
}

// Established lists peers with a usable conversation, ordered by key.
func (m *Manager) Established() []domain.PublicKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PublicKey, 0, len(m.convs))
	for k, c := range m.convs {
		if c.state != StateUninitialized {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// handshakeMessage is context || recipient || exchangeKey.
func handshakeMessage(recipient domain.PublicKey, exchange domain.X25519Public) []byte {
	msg := make([]byte, 0, len(handshakeContext)+domain.PublicKeySize+len(exchange))
	msg = append(msg, handshakeContext...)
	msg = append(msg, recipient.Bytes()...)
	return append(msg, exchange[:]...)
}

func wipeKeys(k domain.SessionKeys) {
	memzero.Zero(k.Send, k.Receive)
}

// Compile-time assertion that Manager implements domain.SessionService.
var _ domain.SessionService = (*Manager)(nil)
