package crypto

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"

	"prism/internal/domain"
)

// Provider is the initialized primitive handle. The zero value is not usable;
// obtain one from Init.
type Provider struct {
	rand io.Reader
}

var (
	initOnce sync.Once
	provider *Provider
	initErr  error
)

// Init prepares the provider exactly once per process. Concurrent callers
// block until the first call finishes and all observe the same handle and
// error.
func Init() (*Provider, error) {
	initOnce.Do(func() {
		p := &Provider{rand: rand.Reader}
		if err := p.selfTest(); err != nil {
			initErr = fmt.Errorf("%w: self-test: %v", domain.ErrPrimitiveFailure, err)
			return
		}
		provider = p
	})
	return provider, initErr
}

// WithRand returns a handle sharing p's state but drawing entropy from r.
// It exists for deterministic tests and fault injection.
func (p *Provider) WithRand(r io.Reader) *Provider {
	return &Provider{rand: r}
}

// RandomBytes returns n bytes from the provider's entropy source.
func (p *Provider) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(p.rand, b); err != nil {
		return nil, fmt.Errorf("%w: random: %v", domain.ErrPrimitiveFailure, err)
	}
	return b, nil
}

// RandomInt returns a uniform integer in [0, n).
func (p *Provider) RandomInt(n int) (int, error) {
	v, err := rand.Int(p.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("%w: random: %v", domain.ErrPrimitiveFailure, err)
	}
	return int(v.Int64()), nil
}

// selfTest seals and opens a short message with a throwaway key pair.
func (p *Provider) selfTest() error {
	pub, priv, err := p.Keypair()
	if err != nil {
		return err
	}
	msg := []byte("prism")
	ct, err := p.SealAnonymous(msg, pub.Box)
	if err != nil {
		return err
	}
	got, err := p.OpenAnonymous(ct, pub.Box, priv.Box)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, msg) {
		return fmt.Errorf("sealed box round trip mismatch")
	}
	if !p.Verify(msg, p.Sign(msg, priv.Sign), pub.Sign) {
		return fmt.Errorf("signature round trip mismatch")
	}
	return nil
}
