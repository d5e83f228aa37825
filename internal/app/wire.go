package app

import (
	"os"

	"github.com/sirupsen/logrus"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/protocol/envelope"
	idproto "prism/internal/protocol/identity"
	msgproto "prism/internal/protocol/message"
	"prism/internal/protocol/transport"
	"prism/internal/relay"
	identitysvc "prism/internal/services/identity"
	messagesvc "prism/internal/services/message"
	sessionsvc "prism/internal/services/session"
	"prism/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config    Config
	Provider  *crypto.Provider
	Issuer    *idproto.Issuer
	Packets   *msgproto.Codec
	Envelopes *envelope.Sealer
	Identity  *identitysvc.Service
	Contacts  domain.ContactStore
	Sessions  *sessionsvc.Manager
	Messages  *messagesvc.Service
	Relay     domain.RelayClient
	Log       *logrus.Logger
}

// NewWire constructs the dependency graph from cfg. It creates cfg.Home if
// needed but does not load the identity.
func NewWire(cfg Config) (*Wire, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	p, err := crypto.Init()
	if err != nil {
		return nil, err
	}
	log := cfg.Logger

	// File-based stores
	keyring := store.NewKeyringFileStore(cfg.Home)
	contacts := store.NewContactFileStore(cfg.Home)

	// Protocol codecs
	issuer := idproto.New(p)
	tc := transport.New(p)

	// Relay client (uses provided HTTP client)
	rc := relay.NewHTTP(cfg.RelayURL, cfg.HTTP)

	// High-level services
	ids := identitysvc.New(keyring, issuer, log.WithField("svc", "identity"))
	sessions := sessionsvc.New(p, ids, tc, log.WithField("svc", "session"))
	messages := messagesvc.New(ids, sessions, tc, rc, cfg.RoutingTag, log.WithField("svc", "message"))

	return &Wire{
		Config:    cfg,
		Provider:  p,
		Issuer:    issuer,
		Packets:   msgproto.New(p),
		Envelopes: envelope.New(p),
		Identity:  ids,
		Contacts:  contacts,
		Sessions:  sessions,
		Messages:  messages,
		Relay:     rc,
		Log:       log,
	}, nil
}
