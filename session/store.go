// Package session persists the three session tokens across two key-value
// tiers and a cross-subdomain cookie mirror, and derives the lightweight
// identity projection from the ID token.
package session

import (
	"github.com/pkg/errors"

	"github.com/softwareInkhub/auth-brmh/storage"
)

// Mode selects the storage tier a session is saved into.
type Mode string

const (
	// ModeDurable survives browser restarts.
	ModeDurable Mode = "durable"
	// ModeEphemeral is cleared when the browsing session ends.
	ModeEphemeral Mode = "ephemeral"
)

// Tokens is the credential material of one session. All three values are
// opaque bearer strings; only the ID token payload is ever inspected.
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
}

// Storage key names. Each token is written under both a canonical and a
// legacy key so older sibling applications on the same domain keep reading.
const (
	accessKey        = "accessToken"
	idKey            = "idToken"
	refreshKey       = "refreshToken"
	legacyAccessKey  = "access_token"
	legacyIDKey      = "id_token"
	legacyRefreshKey = "refresh_token"

	tierFlagKey = "tokenTier"

	userIDKey    = "user_id"
	userEmailKey = "user_email"
	userNameKey  = "user_name"
)

// Cookie names match the legacy keys so every subdomain reads the same
// session.
const (
	accessCookie  = legacyAccessKey
	idCookie      = legacyIDKey
	refreshCookie = legacyRefreshKey
)

const (
	accessCookieMaxAge  = 3600
	refreshCookieMaxAge = 30 * 24 * 3600
)

// Handshake keys cleared alongside the session on logout.
var handshakeKeys = []string{
	"oauthState", "oauthNonce", "oauthProvider", "oauth_next_url", "oauthCreatedAt",
}

// Store owns session persistence over the two tiers and the cookie jar.
// All operations are local and synchronous.
type Store struct {
	durable      storage.Store
	ephemeral    storage.Store
	jar          storage.CookieJar
	cookieDomain string
	secure       bool
}

// Option modifies a Store.
type Option func(*Store)

// WithCookieDomain scopes the mirrored cookies to domain (the registrable
// parent domain, e.g. ".brmh.in").
func WithCookieDomain(domain string) Option {
	return func(s *Store) { s.cookieDomain = domain }
}

// WithSecure controls the Secure attribute of mirrored cookies. Disable
// only for plain-HTTP local development.
func WithSecure(secure bool) Option {
	return func(s *Store) { s.secure = secure }
}

// New creates a Store over the two tiers and the cookie jar.
func New(durable, ephemeral storage.Store, jar storage.CookieJar, options ...Option) (*Store, error) {
	if durable == nil || ephemeral == nil {
		return nil, errors.New("[session.New] both storage tiers are required")
	}
	if jar == nil {
		return nil, errors.New("[session.New] cookie jar is required")
	}
	s := &Store{
		durable:   durable,
		ephemeral: ephemeral,
		jar:       jar,
		secure:    true,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Save writes tokens into the tier selected by mode, mirrors them into the
// domain cookies, and recomputes the identity projection from the ID token.
// A previous session in either tier is overwritten.
func (s *Store) Save(tokens Tokens, mode Mode) {
	active, inactive := s.tiers(mode)

	writePair := func(canonical, legacy, value string) {
		if value == "" {
			active.Delete(canonical)
			active.Delete(legacy)
			return
		}
		active.Set(canonical, value)
		active.Set(legacy, value)
	}
	writePair(accessKey, legacyAccessKey, tokens.AccessToken)
	writePair(idKey, legacyIDKey, tokens.IDToken)
	writePair(refreshKey, legacyRefreshKey, tokens.RefreshToken)

	for _, key := range []string{accessKey, legacyAccessKey, idKey, legacyIDKey, refreshKey, legacyRefreshKey} {
		inactive.Delete(key)
	}

	// The flag lives in the durable tier so it survives alongside a
	// durable session and is harmlessly stale for an ephemeral one.
	s.durable.Set(tierFlagKey, string(mode))

	s.mirrorCookies(tokens, mode)
	s.projectIdentity(active, tokens.IDToken)
}

// Load returns the session recorded by the last Save, trying the flagged
// tier first and falling back to the other. Either tier may be the only
// populated one; the caller never needs to know which.
func (s *Store) Load() Tokens {
	first, second := s.tiers(s.flaggedMode())
	if t := readTokens(first); t.AccessToken != "" || t.IDToken != "" || t.RefreshToken != "" {
		return t
	}
	return readTokens(second)
}

// IsAuthenticated reports whether both an access and an ID token are
// present. A missing refresh token does not affect the result.
func (s *Store) IsAuthenticated() bool {
	t := s.Load()
	return t.AccessToken != "" && t.IDToken != ""
}

// Clear removes the session from both tiers, drops the identity projection
// and any in-flight OAuth handshake, and expires the mirrored cookies.
// Logout is effective immediately regardless of remaining cookie max-age.
func (s *Store) Clear() {
	keys := []string{
		accessKey, legacyAccessKey, idKey, legacyIDKey, refreshKey, legacyRefreshKey,
		tierFlagKey, userIDKey, userEmailKey, userNameKey,
	}
	keys = append(keys, handshakeKeys...)
	for _, key := range keys {
		s.durable.Delete(key)
		s.ephemeral.Delete(key)
	}
	for _, name := range []string{accessCookie, idCookie, refreshCookie} {
		s.jar.Expire(name, s.cookieDomain)
	}
}

// Identity returns the stored identity projection, if any.
func (s *Store) Identity() (Identity, bool) {
	active, _ := s.tiers(s.flaggedMode())
	id := Identity{}
	id.SubjectID, _ = active.Get(userIDKey)
	id.Email, _ = active.Get(userEmailKey)
	id.DisplayName, _ = active.Get(userNameKey)
	return id, id.SubjectID != ""
}

// TokensFromCookies reads the session from the cookie mirror only. Sibling
// subdomain apps use this to pick up a session without a network call.
func (s *Store) TokensFromCookies() Tokens {
	t := Tokens{}
	t.AccessToken, _ = s.jar.Get(accessCookie)
	t.IDToken, _ = s.jar.Get(idCookie)
	t.RefreshToken, _ = s.jar.Get(refreshCookie)
	return t
}

// AuthenticatedViaCookies reports whether the cookie mirror alone carries
// an authenticated session.
func (s *Store) AuthenticatedViaCookies() bool {
	t := s.TokensFromCookies()
	return t.AccessToken != "" && t.IDToken != ""
}

// SyncFromCookies copies a cookie-borne session into the mode tier when the
// tiers hold none. It reports whether a sync happened.
func (s *Store) SyncFromCookies(mode Mode) bool {
	if s.IsAuthenticated() {
		return false
	}
	cookieTokens := s.TokensFromCookies()
	if cookieTokens.AccessToken == "" || cookieTokens.IDToken == "" {
		return false
	}
	active, _ := s.tiers(mode)
	active.Set(accessKey, cookieTokens.AccessToken)
	active.Set(legacyAccessKey, cookieTokens.AccessToken)
	active.Set(idKey, cookieTokens.IDToken)
	active.Set(legacyIDKey, cookieTokens.IDToken)
	if cookieTokens.RefreshToken != "" {
		active.Set(refreshKey, cookieTokens.RefreshToken)
		active.Set(legacyRefreshKey, cookieTokens.RefreshToken)
	}
	s.durable.Set(tierFlagKey, string(mode))
	s.projectIdentity(active, cookieTokens.IDToken)
	return true
}

func (s *Store) tiers(mode Mode) (active, inactive storage.Store) {
	if mode == ModeEphemeral {
		return s.ephemeral, s.durable
	}
	return s.durable, s.ephemeral
}

func (s *Store) flaggedMode() Mode {
	if flag, ok := s.durable.Get(tierFlagKey); ok && Mode(flag) == ModeEphemeral {
		return ModeEphemeral
	}
	return ModeDurable
}

func (s *Store) mirrorCookies(tokens Tokens, mode Mode) {
	set := func(name, value string, maxAge int) {
		if value == "" {
			s.jar.Expire(name, s.cookieDomain)
			return
		}
		if mode == ModeEphemeral {
			maxAge = 0 // session cookie
		}
		s.jar.Set(storage.Cookie{
			Name:     name,
			Value:    value,
			Domain:   s.cookieDomain,
			Path:     "/",
			MaxAge:   maxAge,
			Secure:   s.secure,
			SameSite: storage.SameSiteNone,
		})
	}
	set(accessCookie, tokens.AccessToken, accessCookieMaxAge)
	set(idCookie, tokens.IDToken, accessCookieMaxAge)
	set(refreshCookie, tokens.RefreshToken, refreshCookieMaxAge)
}

// projectIdentity recomputes the identity keys from idToken. Decode failure
// drops the stale projection and is otherwise silent; the projection is a
// UI convenience, never an authentication input.
func (s *Store) projectIdentity(tier storage.Store, idToken string) {
	drop := func() {
		tier.Delete(userIDKey)
		tier.Delete(userEmailKey)
		tier.Delete(userNameKey)
	}
	if idToken == "" {
		drop()
		return
	}
	id, err := DeriveIdentity(idToken)
	if err != nil {
		drop()
		return
	}
	tier.Set(userIDKey, id.SubjectID)
	if id.Email != "" {
		tier.Set(userEmailKey, id.Email)
	} else {
		tier.Delete(userEmailKey)
	}
	if id.DisplayName != "" {
		tier.Set(userNameKey, id.DisplayName)
	} else {
		tier.Delete(userNameKey)
	}
}

func readTokens(tier storage.Store) Tokens {
	read := func(canonical, legacy string) string {
		if v, ok := tier.Get(canonical); ok && v != "" {
			return v
		}
		v, _ := tier.Get(legacy)
		return v
	}
	return Tokens{
		AccessToken:  read(accessKey, legacyAccessKey),
		IDToken:      read(idKey, legacyIDKey),
		RefreshToken: read(refreshKey, legacyRefreshKey),
	}
}
