package credential

import (
	"errors"
	"sync"
)

// ErrNoCredential is returned when no usable token is stored, or the
// stored one has been invalidated by a session-expired response.
var ErrNoCredential = errors.New("no stored credential")

// tokenKey is the keyring entry holding the platform bearer token.
const tokenKey = "api-token"

// Provider supplies the bearer credential for platform requests. A
// single provider instance is injected everywhere a request is made,
// so 401 handling lives in one place instead of at every call site.
type Provider interface {
	// Token returns the current bearer token.
	Token() (string, error)

	// Invalidate discards the current token. Subsequent Token calls
	// fail with ErrNoCredential until a new token is stored.
	Invalidate()
}

// KeyringProvider is a Provider backed by the system keyring. The token
// is cached in memory after the first read; Invalidate drops both the
// cache and the keyring entry and fires the configured callback once.
type KeyringProvider struct {
	mu          sync.Mutex
	cached      string
	invalidated bool

	// OnInvalidated, when set, is called exactly once per invalidation
	// (e.g. to tell the UI the session expired).
	OnInvalidated func()
}

// NewKeyringProvider returns a provider reading from the system keyring.
func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{}
}

// Token returns the stored bearer token, reading the keyring on first use.
func (p *KeyringProvider) Token() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.invalidated {
		return "", ErrNoCredential
	}
	if p.cached != "" {
		return p.cached, nil
	}

	token, err := Get(tokenKey)
	if err != nil || token == "" {
		return "", ErrNoCredential
	}
	p.cached = token
	return token, nil
}

// Store saves a new token and clears any previous invalidation.
func (p *KeyringProvider) Store(token string) error {
	if err := Set(tokenKey, token); err != nil {
		return err
	}

	p.mu.Lock()
	p.cached = token
	p.invalidated = false
	p.mu.Unlock()
	return nil
}

// Invalidate discards the stored token. Safe to call from any goroutine;
// repeat calls after the first are no-ops.
func (p *KeyringProvider) Invalidate() {
	p.mu.Lock()
	if p.invalidated {
		p.mu.Unlock()
		return
	}
	p.invalidated = true
	p.cached = ""
	cb := p.OnInvalidated
	p.mu.Unlock()

	_ = Delete(tokenKey)
	if cb != nil {
		cb()
	}
}

// StaticProvider is a Provider with a fixed token, used in tests.
type StaticProvider struct {
	mu          sync.Mutex
	token       string
	invalidated bool
}

// NewStaticProvider returns a provider that always yields token.
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: token}
}

// Token returns the fixed token unless invalidated.
func (p *StaticProvider) Token() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.invalidated {
		return "", ErrNoCredential
	}
	return p.token, nil
}

// Invalidate discards the fixed token.
func (p *StaticProvider) Invalidate() {
	p.mu.Lock()
	p.invalidated = true
	p.mu.Unlock()
}

// Invalidated reports whether Invalidate has been called.
func (p *StaticProvider) Invalidated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invalidated
}
