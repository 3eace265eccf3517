package config

import "strings"

type Cors struct{}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

var defaultOrigins = AllowedOrigins{
	"https://brmh.in":          nullValue{},
	"https://app.brmh.in":      nullValue{},
	"https://projects.brmh.in": nullValue{},
	"http://localhost:3000":    nullValue{},
}

// GetAllowedOrigins reads ALLOWED_ORIGINS (comma separated) or falls back
// to the subdomain family defaults.
func (Cors) GetAllowedOrigins() AllowedOrigins {
	raw := GetEnv("ALLOWED_ORIGINS", "")
	if raw == "" {
		return defaultOrigins
	}
	origins := AllowedOrigins{}
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins[origin] = nullValue{}
		}
	}
	return origins
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
