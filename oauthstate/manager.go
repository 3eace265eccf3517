// Package oauthstate owns the anti-forgery state for the OAuth2
// authorization-code flow: it mints the handshake before the provider
// redirect and validates it one-shot on the callback.
package oauthstate

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/softwareInkhub/auth-brmh/storage"
)

// Storage keys for the single current-handshake slot. Key names match the
// original web client so sibling apps sharing the tier keep working.
const (
	stateKey     = "oauthState"
	nonceKey     = "oauthNonce"
	providerKey  = "oauthProvider"
	returnToKey  = "oauth_next_url"
	createdAtKey = "oauthCreatedAt"
)

// stateLength is the default and minimum length of generated state and
// nonce strings.
const stateLength = 32

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Handshake is the transient, single-use state of one authorization-code
// round trip.
type Handshake struct {
	State     string
	Nonce     string
	Provider  string
	ReturnTo  string
	CreatedAt time.Time
}

// AuthorizationURL is a provider authorization endpoint URL plus the state
// embedded in it.
type AuthorizationURL struct {
	URL   string
	State string
}

// URLSource mints provider authorization URLs server-side (PKCE-backed, so
// client secrets never reach this process). The gateway implements it.
type URLSource interface {
	AuthorizationURL(ctx context.Context, provider string) (AuthorizationURL, error)
}

// HostedUIConfig describes the provider's hosted UI for the local fallback
// URL builder, used when the URL source is unavailable.
type HostedUIConfig struct {
	AuthURL     string // e.g. "https://auth.example.com/oauth2/authorize"
	ClientID    string
	RedirectURI string
	Scopes      []string
}

// Manager persists and validates the current handshake. Only one handshake
// exists at a time: beginning a new one overwrites the previous.
type Manager struct {
	store    storage.Store
	urls     URLSource
	hostedUI HostedUIConfig
	stateLen int
	nowTime  func() time.Time
	randFn   func(length int) (string, error)
}

// Option modifies a Manager.
type Option func(*Manager)

// WithURLSource makes Begin prefer server-minted authorization URLs.
func WithURLSource(src URLSource) Option {
	return func(m *Manager) { m.urls = src }
}

// WithHostedUI configures the local fallback URL builder.
func WithHostedUI(cfg HostedUIConfig) Option {
	return func(m *Manager) { m.hostedUI = cfg }
}

// WithStateLength overrides the length of locally generated state and
// nonce strings. Values below the default are ignored.
func WithStateLength(n int) Option {
	return func(m *Manager) {
		if n >= stateLength {
			m.stateLen = n
		}
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) { m.nowTime = nowFunc }
}

// New creates a Manager persisting handshakes in store.
func New(store storage.Store, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[oauthstate.New] store is required")
	}
	m := &Manager{
		store:    store,
		stateLen: stateLength,
		nowTime:  time.Now,
		randFn:   RandomString,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Begin starts a handshake for provider and returns the authorization URL
// to redirect the user to. returnTo, when non-empty, is remembered as the
// post-login destination. A previously stored handshake is overwritten.
func (m *Manager) Begin(ctx context.Context, provider, returnTo string) (AuthorizationURL, error) {
	if provider == "" {
		return AuthorizationURL{}, errors.New("[Manager.Begin] provider is required")
	}

	authURL, nonce, err := m.mintURL(ctx, provider)
	if err != nil {
		return AuthorizationURL{}, errors.Wrap(err, "[Manager.Begin] minting authorization URL")
	}

	m.persist(Handshake{
		State:     authURL.State,
		Nonce:     nonce,
		Provider:  provider,
		ReturnTo:  returnTo,
		CreatedAt: m.nowTime(),
	})
	return authURL, nil
}

// Complete validates receivedState against the stored handshake and
// consumes the slot. It fails closed: a missing handshake or any byte
// difference rejects, and the slot is cleared regardless of outcome so a
// state can never be replayed. On success the consumed handshake is
// returned so the caller can read ReturnTo.
func (m *Manager) Complete(receivedState string) (Handshake, error) {
	stored, ok := m.load()
	m.clear()
	if !ok {
		return Handshake{}, ErrNoHandshake
	}
	if receivedState == "" || receivedState != stored.State {
		return Handshake{}, ErrStateMismatch
	}
	return stored, nil
}

// ReturnTo reads the stored post-login destination without consuming the
// handshake.
func (m *Manager) ReturnTo() string {
	v, _ := m.store.Get(returnToKey)
	return v
}

func (m *Manager) mintURL(ctx context.Context, provider string) (AuthorizationURL, string, error) {
	if m.urls != nil {
		authURL, err := m.urls.AuthorizationURL(ctx, provider)
		if err == nil && authURL.URL != "" && authURL.State != "" {
			return authURL, "", nil
		}
		if m.hostedUI.AuthURL == "" {
			return AuthorizationURL{}, "", errors.Wrap(err, "[Manager.mintURL] URL source failed and no hosted UI fallback configured")
		}
	}
	return m.buildHostedUIURL(provider)
}

// buildHostedUIURL constructs the hosted-UI authorization URL locally with
// freshly generated state and nonce.
func (m *Manager) buildHostedUIURL(provider string) (AuthorizationURL, string, error) {
	if m.hostedUI.AuthURL == "" || m.hostedUI.ClientID == "" {
		return AuthorizationURL{}, "", errors.New("[Manager.buildHostedUIURL] hosted UI not configured")
	}
	state, err := m.randFn(m.stateLen)
	if err != nil {
		return AuthorizationURL{}, "", errors.Wrap(err, "[Manager.buildHostedUIURL] generating state")
	}
	nonce, err := m.randFn(m.stateLen)
	if err != nil {
		return AuthorizationURL{}, "", errors.Wrap(err, "[Manager.buildHostedUIURL] generating nonce")
	}

	scopes := m.hostedUI.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	cfg := oauth2.Config{
		ClientID:    m.hostedUI.ClientID,
		RedirectURL: m.hostedUI.RedirectURI,
		Scopes:      scopes,
		Endpoint:    oauth2.Endpoint{AuthURL: m.hostedUI.AuthURL},
	}
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("nonce", nonce)}
	if provider != "" {
		opts = append(opts, oauth2.SetAuthURLParam("identity_provider", provider))
	}
	return AuthorizationURL{URL: cfg.AuthCodeURL(state, opts...), State: state}, nonce, nil
}

func (m *Manager) persist(h Handshake) {
	m.store.Set(stateKey, h.State)
	m.store.Set(providerKey, h.Provider)
	m.store.Set(createdAtKey, h.CreatedAt.UTC().Format(time.RFC3339))
	if h.Nonce != "" {
		m.store.Set(nonceKey, h.Nonce)
	} else {
		m.store.Delete(nonceKey)
	}
	if h.ReturnTo != "" {
		m.store.Set(returnToKey, h.ReturnTo)
	} else {
		m.store.Delete(returnToKey)
	}
}

func (m *Manager) load() (Handshake, bool) {
	state, ok := m.store.Get(stateKey)
	if !ok || state == "" {
		return Handshake{}, false
	}
	h := Handshake{State: state}
	h.Nonce, _ = m.store.Get(nonceKey)
	h.Provider, _ = m.store.Get(providerKey)
	h.ReturnTo, _ = m.store.Get(returnToKey)
	if raw, ok := m.store.Get(createdAtKey); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			h.CreatedAt = t
		}
	}
	return h, true
}

func (m *Manager) clear() {
	m.store.Delete(stateKey)
	m.store.Delete(nonceKey)
	m.store.Delete(providerKey)
	m.store.Delete(returnToKey)
	m.store.Delete(createdAtKey)
}

// RandomString returns a uniformly random string of length n drawn from the
// 62-symbol alphanumeric alphabet.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("[RandomString] length must be positive")
	}
	max := big.NewInt(int64(len(alphanumeric)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "[RandomString] rand.Int")
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out), nil
}
