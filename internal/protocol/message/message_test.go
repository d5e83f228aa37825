package message_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/protocol/envelope"
	"prism/internal/protocol/identity"
	"prism/internal/protocol/message"
	"prism/internal/protocol/sealed"
)

type fixture struct {
	codec      *message.Codec
	env        *envelope.Sealer
	seal       *sealed.Courier
	alice, bob domain.Identity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	p, err := crypto.Init()
	require.NoError(t, err)
	iss := identity.New(p)
	alice, err := iss.Generate()
	require.NoError(t, err)
	bob, err := iss.Generate()
	require.NoError(t, err)
	return fixture{codec: message.New(p), env: envelope.New(p), seal: sealed.New(p), alice: alice, bob: bob}
}

func (f fixture) helloPacket(t *testing.T, key domain.SymmetricKey) domain.MessagePacket {
	t.Helper()
	data, err := f.env.Seal(domain.TextMessage{Message: "Hello World!"}, key)
	require.NoError(t, err)
	return domain.MessagePacket{
		Sender:    f.alice.Public,
		Type:      domain.PacketMessage,
		Timestamp: 1700000000000,
		Data:      data,
	}
}

func TestHelloWorldEndToEnd(t *testing.T) {
	f := newFixture(t)
	key, err := f.env.NewKey()
	require.NoError(t, err)
	sent := f.helloPacket(t, key)

	wire, err := f.codec.Write(f.bob.Public, sent)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(wire, message.Separator))

	got, err := f.codec.Read(f.bob, wire)
	require.NoError(t, err)
	if diff := cmp.Diff(sent, got); diff != "" {
		t.Fatalf("packet mismatch (-sent +got):\n%s", diff)
	}

	data, ok := got.Data.(domain.EncryptedPayload)
	require.True(t, ok)
	var text domain.TextMessage
	require.NoError(t, f.env.Open(data, key, &text))
	require.Equal(t, "Hello World!", text.Message)
}

func TestHandshakePacketRoundTrip(t *testing.T) {
	f := newFixture(t)
	sent := domain.MessagePacket{
		Sender: f.alice.Public,
		Type:   domain.PacketHandshakeInit,
		Data: domain.HandshakeInit{
			ExchangeKey: domain.X25519Public{1, 2, 3},
			Recipient:   make([]byte, domain.SignatureSize),
		},
	}
	wire, err := f.codec.Write(f.bob.Public, sent)
	require.NoError(t, err)

	got, err := f.codec.Read(f.bob, wire)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(sent, got))
}

func TestReadWrongRecipient(t *testing.T) {
	f := newFixture(t)
	key, err := f.env.NewKey()
	require.NoError(t, err)

	wire, err := f.codec.Write(f.bob.Public, f.helloPacket(t, key))
	require.NoError(t, err)

	_, err = f.codec.Read(f.alice, wire)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestReadRejectsMalformedWire(t *testing.T) {
	f := newFixture(t)
	key, err := f.env.NewKey()
	require.NoError(t, err)
	wire, err := f.codec.Write(f.bob.Public, f.helloPacket(t, key))
	require.NoError(t, err)
	parts := strings.Split(wire, message.Separator)

	cases := map[string]string{
		"no separator":    parts[0] + parts[1],
		"two separators":  wire + ":" + parts[1],
		"empty":           "",
		"bad base64":      "!!!:" + parts[1],
		"truncated body":  parts[0] + ":AAAA",
		"truncated key":   "AAAA:" + parts[1],
		"only separator":  ":",
		"leading segment": ":" + parts[1],
	}
	for name, w := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.codec.Read(f.bob, w)
			require.ErrorIs(t, err, domain.ErrMalformedPacket)
		})
	}
}

func TestReadRejectsTamperedBody(t *testing.T) {
	f := newFixture(t)
	key, err := f.env.NewKey()
	require.NoError(t, err)
	wire, err := f.codec.Write(f.bob.Public, f.helloPacket(t, key))
	require.NoError(t, err)
	parts := strings.Split(wire, message.Separator)

	body, err := crypto.UnB64(parts[1])
	require.NoError(t, err)
	body[len(body)-1] ^= 0x01

	_, err = f.codec.Read(f.bob, parts[0]+message.Separator+crypto.B64(body))
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestWriteRejectsSchemaMismatch(t *testing.T) {
	f := newFixture(t)
	pkt := domain.MessagePacket{
		Sender: f.alice.Public,
		Type:   domain.PacketHandshakeInit,
		Data:   domain.EncryptedPayload{Nonce: []byte{1}, Ciphertext: []byte{2}},
	}
	_, err := f.codec.Write(f.bob.Public, pkt)
	require.ErrorIs(t, err, domain.ErrMalformedPacket)
}

// rawWire seals an arbitrary JSON document for recipient the way Write does,
// bypassing packet validation.
func (f fixture) rawWire(t *testing.T, recipient domain.PublicKey, doc string) string {
	t.Helper()
	key, err := f.env.NewKey()
	require.NoError(t, err)
	sealedKey, err := f.seal.SealTo(key, recipient)
	require.NoError(t, err)
	body, err := f.env.SealBytes([]byte(doc), key)
	require.NoError(t, err)
	return crypto.B64(sealedKey) + message.Separator + crypto.B64(append(body.Nonce, body.Ciphertext...))
}

func TestReadRejectsSchemaMismatch(t *testing.T) {
	f := newFixture(t)
	sender := f.alice.Public.String()

	cases := []struct {
		name string
		doc  string
	}{
		{"handshake-init carrying an encrypted payload",
			`{"sender":"` + sender + `","type":"handshake-init","data":{"nonce":"AQ==","ciphertext":"Ag=="}}`},
		{"unknown type",
			`{"sender":"` + sender + `","type":"bogus","data":{"nonce":"AQ==","ciphertext":"Ag=="}}`},
		{"extra field inside data",
			`{"sender":"` + sender + `","type":"message","data":{"nonce":"AQ==","ciphertext":"Ag==","extra":1}}`},
		{"extra top-level field",
			`{"sender":"` + sender + `","type":"message","data":{"nonce":"AQ==","ciphertext":"Ag=="},"via":"relay"}`},
		{"missing data",
			`{"sender":"` + sender + `","type":"message"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.codec.Read(f.bob, f.rawWire(t, f.bob.Public, tc.doc))
			require.ErrorIs(t, err, domain.ErrMalformedPacket)
		})
	}

	// The same construction with a well-formed document opens.
	ok := `{"sender":"` + sender + `","type":"message","data":{"nonce":"AQ==","ciphertext":"Ag=="}}`
	got, err := f.codec.Read(f.bob, f.rawWire(t, f.bob.Public, ok))
	require.NoError(t, err)
	require.Equal(t, domain.PacketMessage, got.Type)
}
