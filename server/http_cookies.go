package server

import (
	"net/http"
	"time"

	"github.com/softwareInkhub/auth-brmh/session"
	"github.com/softwareInkhub/auth-brmh/storage"
)

// responseJar adapts one request/response pair to the storage.CookieJar
// interface: reads come from the request, writes become Set-Cookie headers.
type responseJar struct {
	w http.ResponseWriter
	r *http.Request
}

var _ storage.CookieJar = (*responseJar)(nil)

func newResponseJar(w http.ResponseWriter, r *http.Request) *responseJar {
	return &responseJar{w: w, r: r}
}

func (j *responseJar) Set(c storage.Cookie) {
	sameSite := http.SameSiteLaxMode
	if c.SameSite == storage.SameSiteNone {
		sameSite = http.SameSiteNoneMode
	}
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		SameSite: sameSite,
	}
	if c.MaxAge < 0 {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}
	http.SetCookie(j.w, cookie)
}

func (j *responseJar) Get(name string) (string, bool) {
	cookie, err := j.r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (j *responseJar) Expire(name, domain string) {
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Domain:   domain,
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// sessionFor builds a per-request session store: shared process-local KV
// tiers, cookies bound to this response.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Store, error) {
	return session.New(s.durable, s.ephemeral, newResponseJar(w, r),
		session.WithCookieDomain(s.config.GetCookieDomain()),
		session.WithSecure(s.config.GetCookieSecure()))
}
