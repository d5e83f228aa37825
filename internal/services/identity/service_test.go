package identity_test

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"prism/internal/crypto"
	"prism/internal/domain"
	idproto "prism/internal/protocol/identity"
	"prism/internal/services/identity"
	"prism/internal/store"
)

const pass = "Correct-Horse-9-Battery"

func newService(t *testing.T, home string) (*identity.Service, *test.Hook) {
	t.Helper()
	p, err := crypto.Init()
	require.NoError(t, err)
	log, hook := test.NewNullLogger()
	ks := store.NewKeyringFileStore(home, store.WithScryptCost(1<<10))
	return identity.New(ks, idproto.New(p), log), hook
}

func TestGenerateRejectsWeakPassphrase(t *testing.T) {
	svc, _ := newService(t, t.TempDir())
	for _, weak := range []string{"short", "alllowercase123!", "NoDigitsHere!!", "NoSymbols12345"} {
		_, _, err := svc.Generate(weak)
		require.ErrorIs(t, err, identity.ErrWeakPassphrase, weak)
	}
}

func TestGenerateThenLoad(t *testing.T) {
	home := t.TempDir()
	svc, hook := newService(t, home)

	id, fp, err := svc.Generate(pass)
	require.NoError(t, err)
	require.Equal(t, crypto.FingerprintKey(id.Public), fp)
	require.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

	_, _, err = svc.Generate(pass)
	require.ErrorIs(t, err, identity.ErrIdentityExists)

	fresh, _ := newService(t, home)
	_, ok := fresh.Current()
	require.False(t, ok)

	loaded, err := fresh.Load(pass)
	require.NoError(t, err)
	require.Equal(t, id, loaded)

	got, err := fresh.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, fp, got)
}

func TestRotateKeepsPreviousUntilRetired(t *testing.T) {
	home := t.TempDir()
	svc, _ := newService(t, home)
	_, _, err := svc.Rotate(pass)
	require.ErrorIs(t, err, identity.ErrNotLoaded)

	first, _, err := svc.Generate(pass)
	require.NoError(t, err)

	old, next, err := svc.Rotate(pass)
	require.NoError(t, err)
	require.Equal(t, first, old)
	require.True(t, next.Supersedes.Equal(first.Public))

	cur, _ := svc.Current()
	require.Equal(t, next, cur)
	prev, ok := svc.Previous()
	require.True(t, ok)
	require.Equal(t, first, prev)

	// The rotation is durable.
	reloaded, _ := newService(t, home)
	_, err = reloaded.Load(pass)
	require.NoError(t, err)
	prev, ok = reloaded.Previous()
	require.True(t, ok)
	require.Equal(t, first, prev)

	require.NoError(t, svc.Retire(pass))
	_, ok = svc.Previous()
	require.False(t, ok)
}

func TestConcurrentReadersSeeWholeIdentities(t *testing.T) {
	svc, _ := newService(t, t.TempDir())
	_, _, err := svc.Generate(pass)
	require.NoError(t, err)

	p, err := crypto.Init()
	require.NoError(t, err)
	issuer := idproto.New(p)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		bad  []domain.Identity
		stop = make(chan struct{})
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				id, ok := svc.Current()
				if ok && issuer.Check(id) != nil {
					mu.Lock()
					bad = append(bad, id)
					mu.Unlock()
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, _, err := svc.Rotate(pass)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	require.Empty(t, bad)
}
