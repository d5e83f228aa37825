package kx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"prism/internal/crypto"
	"prism/internal/domain"
	"prism/internal/protocol/kx"
)

func newExchange(t *testing.T) *kx.Exchange {
	t.Helper()
	p, err := crypto.Init()
	require.NoError(t, err)
	return kx.New(p)
}

func pairs(t *testing.T, x *kx.Exchange) (a, b domain.ExchangeKeyPair) {
	t.Helper()
	a, err := x.GeneratePair()
	require.NoError(t, err)
	b, err = x.GeneratePair()
	require.NoError(t, err)
	return a, b
}

func TestExchangeSymmetry(t *testing.T) {
	x := newExchange(t)
	for i := 0; i < 20; i++ {
		a, b := pairs(t, x)

		ak, err := x.DeriveAsInitiator(a, b.Public)
		require.NoError(t, err)
		bk, err := x.DeriveAsResponder(b, a.Public)
		require.NoError(t, err)

		require.Equal(t, ak.Send, bk.Receive)
		require.Equal(t, bk.Send, ak.Receive)
		require.NotEqual(t, ak.Send, ak.Receive)
	}
}

func TestSameRoleDoesNotCrossMatch(t *testing.T) {
	x := newExchange(t)
	a, b := pairs(t, x)

	ai, err := x.DeriveAsInitiator(a, b.Public)
	require.NoError(t, err)
	bi, err := x.DeriveAsInitiator(b, a.Public)
	require.NoError(t, err)
	require.NotEqual(t, ai.Send, bi.Receive)
	require.NotEqual(t, bi.Send, ai.Receive)

	ar, err := x.DeriveAsResponder(a, b.Public)
	require.NoError(t, err)
	br, err := x.DeriveAsResponder(b, a.Public)
	require.NoError(t, err)
	require.NotEqual(t, ar.Send, br.Receive)
}

func TestSubkeyDeterminism(t *testing.T) {
	x := newExchange(t)
	a, b := pairs(t, x)
	keys, err := x.DeriveAsInitiator(a, b.Public)
	require.NoError(t, err)

	s1, err := x.Subkey(keys.Send, kx.ConfirmContext)
	require.NoError(t, err)
	s2, err := x.Subkey(keys.Send, kx.ConfirmContext)
	require.NoError(t, err)
	require.Equal(t, s1, s2)
	require.Len(t, s1, kx.SubkeySize)

	s3, err := x.Subkey(keys.Receive, kx.ConfirmContext)
	require.NoError(t, err)
	require.NotEqual(t, s1, s3)

	s4, err := x.Subkey(keys.Send, "othrctx!")
	require.NoError(t, err)
	require.NotEqual(t, s1, s4)
}

func TestConfirmAcrossParties(t *testing.T) {
	x := newExchange(t)
	a, b := pairs(t, x)
	ak, err := x.DeriveAsInitiator(a, b.Public)
	require.NoError(t, err)
	bk, err := x.DeriveAsResponder(b, a.Public)
	require.NoError(t, err)

	tag, err := x.Subkey(bk.Receive, kx.ConfirmContext)
	require.NoError(t, err)
	require.True(t, x.Confirm(ak.Send, tag))
	require.False(t, x.Confirm(ak.Receive, tag))
	require.False(t, x.Confirm(ak.Send, tag[:8]))
}
