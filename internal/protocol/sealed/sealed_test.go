package sealed_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/protocol/identity"
	"prism/internal/protocol/sealed"
)

type keyAndNonce struct {
	Key   []byte `json:"key"`
	Nonce []byte `json:"nonce"`
}

func setup(t *testing.T) (*sealed.Courier, *identity.Issuer) {
	t.Helper()
	p, err := crypto.Init()
	require.NoError(t, err)
	return sealed.New(p), identity.New(p)
}

func TestSealToRecipientOnly(t *testing.T) {
	c, iss := setup(t)
	bob, err := iss.Generate()
	require.NoError(t, err)
	eve, err := iss.Generate()
	require.NoError(t, err)

	ct, err := c.SealTo([]byte("session key"), bob.Public)
	require.NoError(t, err)

	got, err := c.Open(ct, bob)
	require.NoError(t, err)
	require.Equal(t, []byte("session key"), got)

	_, err = c.Open(ct, eve)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestOpenRejectsCorruption(t *testing.T) {
	c, iss := setup(t)
	bob, err := iss.Generate()
	require.NoError(t, err)

	ct, err := c.SealTo([]byte("k"), bob.Public)
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0xff

	_, err = c.Open(ct, bob)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)

	_, err = c.Open([]byte("short"), bob)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestSealValueTuple(t *testing.T) {
	c, iss := setup(t)
	bob, err := iss.Generate()
	require.NoError(t, err)

	want := keyAndNonce{Key: bytes.Repeat([]byte{7}, 48), Nonce: bytes.Repeat([]byte{9}, 24)}
	ct, err := c.SealValue(want, bob.Public)
	require.NoError(t, err)

	var got keyAndNonce
	require.NoError(t, c.OpenValue(ct, bob, &got))
	require.Equal(t, want, got)
}

func TestRefusesLargePayload(t *testing.T) {
	c, iss := setup(t)
	bob, err := iss.Generate()
	require.NoError(t, err)

	_, err = c.SealTo(make([]byte, sealed.MaxSecretSize+1), bob.Public)
	require.ErrorIs(t, err, sealed.ErrTooLarge)
}
