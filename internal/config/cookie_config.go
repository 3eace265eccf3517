package config

type Cookies struct{}

var _ CookieConfig = Cookies{}

// GetCookieDomain is the registrable parent domain the token cookies are
// scoped to, so every subdomain reads the same session.
func (Cookies) GetCookieDomain() string {
	return GetEnv("COOKIE_DOMAIN", ".brmh.in")
}

// GetCookieSecure should only be false for plain-HTTP local development;
// SameSite=None cookies require Secure in browsers.
func (c Cookies) GetCookieSecure() bool {
	return GetEnv("COOKIE_SECURE", "true") != "false"
}
