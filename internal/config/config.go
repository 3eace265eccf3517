package config

type Config interface {
	EnvConfig
	BackendConfig
	OAuthConfig
	CookieConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type BackendConfig interface {
	GetAPIBaseURL() string
	GetDefaultCountryCode() string
	GetDefaultDestination() string
	GetAppHost() string
}

type CookieConfig interface {
	GetCookieDomain() string
	GetCookieSecure() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Backend
	OAuth
	Cookies
	Cors
}

func New() Config {
	return mainConfig{}
}
