package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/protocol/transport"
)

var (
	// ErrNoIdentity is returned when no local identity has been loaded.
	ErrNoIdentity = errors.New("message: no local identity")
	// ErrUntrustedSender marks a transport packet whose sender has no
	// established conversation.
	ErrUntrustedSender = errors.New("message: sender is not an established peer")
)

// Service sends and receives messages over the relay.
//
// High-level flow:
//   - StartSession: post a handshake-init to the peer's mailbox.
//   - Send: seal the text under the session send key, wrap it in a transport
//     packet authored by the current identity and post it.
//   - Readdress: announce a rotated identity to every established peer,
//     authored by the old identity the peers still trust.
//   - Receive: fetch, open and dispatch, answering handshakes as needed.
type Service struct {
	ids       domain.IdentityHolder
	sessions  domain.SessionService
	transport *transport.Codec
	relay     domain.RelayClient
	tag       string
	log       logrus.FieldLogger
	now       func() time.Time
}

// New constructs a Message Service. tag is the routing tag placed in the
// sender address of every transport packet.
func New(
	ids domain.IdentityHolder,
	sessions domain.SessionService,
	tc *transport.Codec,
	relay domain.RelayClient,
	tag string,
	log logrus.FieldLogger,
) *Service {
	return &Service{
		ids:       ids,
		sessions:  sessions,
		transport: tc,
		relay:     relay,
		tag:       tag,
		log:       log,
		now:       time.Now,
	}
}

// Mailbox names the relay mailbox of a public key.
func Mailbox(pub domain.PublicKey) string { return crypto.FingerprintKey(pub).String() }

// StartSession sends a handshake-init to peer.
func (s *Service) StartSession(ctx context.Context, peer domain.PublicKey) error {
	wire, err := s.sessions.Initiate(peer)
	if err != nil {
		return err
	}
	return s.post(ctx, peer, domain.EnvelopePacket, wire)
}

// Send encrypts text for peer and posts it.
func (s *Service) Send(ctx context.Context, peer domain.PublicKey, text string) error {
	own, ok := s.ids.Current()
	if !ok {
		return ErrNoIdentity
	}
	inner, err := s.sessions.Seal(peer, domain.PacketMessage, domain.TextMessage{Message: text})
	if err != nil {
		return err
	}
	wire, err := s.transport.Build(inner, peer, own, s.tag)
	if err != nil {
		return err
	}
	return s.post(ctx, peer, domain.EnvelopeTransport, wire)
}

// Readdress tells every established peer that next replaces old. Each
// announcement is authored by old, so peers open it with the key they
// already trust. Failures for one peer do not stop the others.
func (s *Service) Readdress(ctx context.Context, old, next domain.Identity) error {
	var errs []error
	for _, peer := range s.sessions.Established() {
		if err := s.readdressPeer(ctx, peer, old, next); err != nil {
			s.log.WithError(err).WithField("peer", Mailbox(peer)).Warn("readdress announcement failed")
			errs = append(errs, fmt.Errorf("peer %s: %w", Mailbox(peer), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) readdressPeer(ctx context.Context, peer domain.PublicKey, old, next domain.Identity) error {
	inner, err := s.sessions.AnnounceReaddress(peer, old, next)
	if err != nil {
		return err
	}
	defer s.sessions.CompleteReaddress(peer)

	wire, err := s.transport.Build(inner, peer, old, s.tag)
	if err != nil {
		return err
	}
	return s.post(ctx, peer, domain.EnvelopeTransport, wire)
}

// Receive fetches up to limit envelopes from each of our mailboxes and
// returns what could be opened, in mailbox order.
func (s *Service) Receive(ctx context.Context, limit int) ([]domain.DecryptedMessage, error) {
	cur, ok := s.ids.Current()
	if !ok {
		return nil, ErrNoIdentity
	}
	owned := []domain.Identity{cur}
	if prev, ok := s.ids.Previous(); ok {
		owned = append(owned, prev)
	}

	var out []domain.DecryptedMessage
	for _, own := range owned {
		box := Mailbox(own.Public)
		envs, err := s.relay.Fetch(ctx, box, limit)
		if err != nil {
			return out, err
		}
		for _, env := range envs {
			msg, err := s.handle(ctx, own, env)
			if err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"mailbox": box,
					"kind":    env.Kind,
				}).Warn("dropping envelope")
				continue
			}
			out = append(out, msg)
		}
		if len(envs) > 0 {
			if err := s.relay.Ack(ctx, box, len(envs)); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

func (s *Service) handle(ctx context.Context, own domain.Identity, env domain.Envelope) (domain.DecryptedMessage, error) {
	switch env.Kind {
	case domain.EnvelopePacket:
		return s.handleHandshake(ctx, env)
	case domain.EnvelopeTransport:
		return s.handleTransport(own, env)
	default:
		return domain.DecryptedMessage{}, fmt.Errorf("%w: unknown envelope kind %q", domain.ErrMalformedPacket, env.Kind)
	}
}

func (s *Service) handleHandshake(ctx context.Context, env domain.Envelope) (domain.DecryptedMessage, error) {
	outcome, err := s.sessions.HandleHandshake(env.Wire)
	if err != nil {
		return domain.DecryptedMessage{}, err
	}
	if outcome.Reply != "" {
		if err := s.post(ctx, outcome.Peer, domain.EnvelopePacket, outcome.Reply); err != nil {
			return domain.DecryptedMessage{}, fmt.Errorf("handshake reply: %w", err)
		}
	}
	return domain.DecryptedMessage{From: outcome.Peer, Type: outcome.Type, Timestamp: env.Timestamp}, nil
}

func (s *Service) handleTransport(own domain.Identity, env domain.Envelope) (domain.DecryptedMessage, error) {
	pkt, err := s.transport.Open(env.Wire, own)
	if err != nil {
		return domain.DecryptedMessage{}, err
	}
	// Open proved the sender holds the claimed key; only keys with an
	// established conversation are accepted.
	peer := pkt.Sender.Key
	if !s.sessions.Trusted(peer) {
		return domain.DecryptedMessage{}, ErrUntrustedSender
	}
	msg := domain.DecryptedMessage{
		From:      peer,
		Tag:       pkt.Sender.Tag,
		Type:      pkt.Box.Type,
		Timestamp: pkt.Box.Timestamp,
	}
	switch pkt.Box.Type {
	case domain.PacketMessage:
		var text domain.TextMessage
		if err := s.sessions.Open(peer, pkt.Box, &text); err != nil {
			return domain.DecryptedMessage{}, err
		}
		msg.Text = text.Message
	case domain.PacketReaddress:
		next, err := s.sessions.AcceptReaddress(peer, pkt.Box)
		if err != nil {
			return domain.DecryptedMessage{}, err
		}
		msg.From = next
		msg.Replaces = peer
		msg.Text = fmt.Sprintf("readdressed from %s", Mailbox(peer))
	default:
		return domain.DecryptedMessage{}, fmt.Errorf("%w: unexpected inner type %q", domain.ErrMalformedPacket, pkt.Box.Type)
	}
	return msg, nil
}

func (s *Service) post(ctx context.Context, peer domain.PublicKey, kind domain.EnvelopeKind, wire string) error {
	return s.relay.Post(ctx, Mailbox(peer), domain.Envelope{
		Kind:      kind,
		Wire:      wire,
		Timestamp: s.now().UnixMilli(),
	})
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
