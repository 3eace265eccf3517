package config

type Backend struct{}

var _ BackendConfig = Backend{}

// GetAPIBaseURL returns the base URL of the backend identity API.
func (Backend) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "https://brmh.in/api")
}

// GetDefaultCountryCode is applied to bare 10-digit phone numbers.
func (Backend) GetDefaultCountryCode() string {
	return GetEnv("DEFAULT_COUNTRY_CODE", "+91")
}

// GetDefaultDestination is the post-login landing path when nothing else
// was requested.
func (Backend) GetDefaultDestination() string {
	return GetEnv("DEFAULT_DESTINATION", "/")
}

// GetAppHost is this app's own host. Redirect destinations outside its
// registrable domain receive the token fragment hand-off.
func (Backend) GetAppHost() string {
	return GetEnv("APP_HOST", "auth.brmh.in")
}
