package crypto_test

import (
	"errors"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"prism/internal/crypto"
	"prism/internal/domain"
)

func mustProvider(t *testing.T) *crypto.Provider {
	t.Helper()
	p, err := crypto.Init()
	require.NoError(t, err)
	return p
}

func TestInitReturnsOneHandle(t *testing.T) {
	const n = 16
	handles := make([]*crypto.Provider, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = crypto.Init()
		}(i)
	}
	wg.Wait()
	for i, h := range handles {
		require.NoError(t, errs[i])
		require.Same(t, handles[0], h)
	}
}

func TestEntropyFailureIsPrimitiveFailure(t *testing.T) {
	p := mustProvider(t).WithRand(iotest.ErrReader(errors.New("entropy exhausted")))

	_, _, err := p.Keypair()
	require.ErrorIs(t, err, domain.ErrPrimitiveFailure)

	_, err = p.RandomBytes(8)
	require.ErrorIs(t, err, domain.ErrPrimitiveFailure)
}

func TestPublicFromPrivateMatchesKeypair(t *testing.T) {
	p := mustProvider(t)
	pub, priv, err := p.Keypair()
	require.NoError(t, err)

	got, err := p.PublicFromPrivate(priv)
	require.NoError(t, err)
	require.True(t, got.Equal(pub))
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	p := mustProvider(t)
	pub, priv, err := p.Keypair()
	require.NoError(t, err)

	msg := []byte("payload")
	sig := p.Sign(msg, priv.Sign)
	require.True(t, p.Verify(msg, sig, pub.Sign))

	require.False(t, p.Verify(msg, nil, pub.Sign))
	require.False(t, p.Verify(msg, sig[:10], pub.Sign))
	require.False(t, p.Verify([]byte("other"), sig, pub.Sign))

	sig[0] ^= 1
	require.False(t, p.Verify(msg, sig, pub.Sign))
}

func TestSealAnonymousOnlyOpensForRecipient(t *testing.T) {
	p := mustProvider(t)
	bob, bobPriv, err := p.Keypair()
	require.NoError(t, err)
	eve, evePriv, err := p.Keypair()
	require.NoError(t, err)

	ct, err := p.SealAnonymous([]byte("secret"), bob.Box)
	require.NoError(t, err)
	require.Len(t, ct, len("secret")+crypto.SealOverhead)

	got, err := p.OpenAnonymous(ct, bob.Box, bobPriv.Box)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), got)

	_, err = p.OpenAnonymous(ct, eve.Box, evePriv.Box)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestBoxBindsBothParties(t *testing.T) {
	p := mustProvider(t)
	alice, alicePriv, err := p.Keypair()
	require.NoError(t, err)
	bob, bobPriv, err := p.Keypair()
	require.NoError(t, err)
	eve, _, err := p.Keypair()
	require.NoError(t, err)

	nonce, err := p.RandomBytes(crypto.BoxNonceSize)
	require.NoError(t, err)
	ct, err := p.BoxSeal([]byte("hi bob"), nonce, bob.Box, alicePriv.Box)
	require.NoError(t, err)

	got, err := p.BoxOpen(ct, nonce, alice.Box, bobPriv.Box)
	require.NoError(t, err)
	require.Equal(t, []byte("hi bob"), got)

	_, err = p.BoxOpen(ct, nonce, eve.Box, bobPriv.Box)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)

	_, err = p.BoxOpen(ct, nonce[:8], alice.Box, bobPriv.Box)
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestAEADRejectsTampering(t *testing.T) {
	p := mustProvider(t)
	key, err := p.RandomBytes(crypto.AEADKeySize)
	require.NoError(t, err)
	nonce, err := p.RandomBytes(crypto.AEADNonceSize)
	require.NoError(t, err)

	ct, err := p.AEADEncrypt([]byte("payload"), key, nonce)
	require.NoError(t, err)

	for i := range ct {
		bad := append([]byte(nil), ct...)
		bad[i] ^= 0x80
		_, err := p.AEADDecrypt(bad, key, nonce)
		require.ErrorIs(t, err, domain.ErrAuthenticationFailure, "byte %d", i)
	}

	_, err = p.AEADEncrypt([]byte("x"), key[:16], nonce)
	require.ErrorIs(t, err, domain.ErrPrimitiveFailure)
}

func TestKXDirectionalKeysCrossMatch(t *testing.T) {
	p := mustProvider(t)
	client, err := p.ExchangeKeypair()
	require.NoError(t, err)
	server, err := p.ExchangeKeypair()
	require.NoError(t, err)

	crx, ctx, err := p.KXClientKeys(client, server.Public)
	require.NoError(t, err)
	srx, stx, err := p.KXServerKeys(server, client.Public)
	require.NoError(t, err)

	require.Equal(t, ctx, srx)
	require.Equal(t, stx, crx)
	require.NotEqual(t, ctx, crx)

	// Both sides taking the client role do not agree.
	orx, otx, err := p.KXClientKeys(server, client.Public)
	require.NoError(t, err)
	require.NotEqual(t, ctx, orx)
	require.NotEqual(t, otx, crx)
}

func TestKXRejectsLowOrderKey(t *testing.T) {
	p := mustProvider(t)
	own, err := p.ExchangeKeypair()
	require.NoError(t, err)

	_, _, err = p.KXClientKeys(own, domain.X25519Public{})
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestDeriveSubkeyIsDeterministic(t *testing.T) {
	p := mustProvider(t)
	key, err := p.RandomBytes(32)
	require.NoError(t, err)
	other, err := p.RandomBytes(32)
	require.NoError(t, err)

	a, err := p.DeriveSubkey(32, 1, "prismcfm", key)
	require.NoError(t, err)
	b, err := p.DeriveSubkey(32, 1, "prismcfm", key)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := p.DeriveSubkey(32, 1, "prismcfm", other)
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	d, err := p.DeriveSubkey(32, 2, "prismcfm", key)
	require.NoError(t, err)
	require.NotEqual(t, a, d)
}

func TestFingerprintKey(t *testing.T) {
	p := mustProvider(t)
	pub, _, err := p.Keypair()
	require.NoError(t, err)

	fp := crypto.FingerprintKey(pub)
	require.Len(t, fp.String(), 20)
	require.Equal(t, fp, crypto.FingerprintKey(pub))
}
