package config

import "strings"

type OAuthConfig interface {
	GetHostedUIAuthURL() string
	GetOAuthClientID() string
	GetOAuthRedirectURI() string
	GetOAuthScopes() []string
	GetStateLength() int
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetHostedUIAuthURL is the provider's hosted-UI authorize endpoint, used
// only when the backend cannot mint the authorization URL.
func (OAuth) GetHostedUIAuthURL() string {
	return GetEnv("HOSTED_UI_AUTH_URL", "")
}

func (OAuth) GetOAuthClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "")
}

func (OAuth) GetOAuthRedirectURI() string {
	return GetEnv("OAUTH_REDIRECT_URI", "https://auth.brmh.in/callback")
}

func (OAuth) GetOAuthScopes() []string {
	return strings.Fields(GetEnv("OAUTH_SCOPES", "openid email profile"))
}

func (OAuth) GetStateLength() int {
	return 32
}
