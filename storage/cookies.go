package storage

// Cookie carries the attributes the session layer needs when mirroring
// tokens into the shared cookie channel. MaxAge follows net/http semantics:
// 0 means a session cookie, negative means delete immediately.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	MaxAge   int
	Secure   bool
	SameSite SameSite
}

// SameSite mirrors the cookie SameSite attribute values the session layer
// emits. The cross-subdomain token mirror requires None.
type SameSite string

const (
	SameSiteLax  SameSite = "Lax"
	SameSiteNone SameSite = "None"
)

// CookieJar is the write/read surface over the browser cookie jar. Expire
// must make the named cookie unreadable immediately (past expiry), even if
// the original max-age has not elapsed.
type CookieJar interface {
	Set(c Cookie)
	Get(name string) (string, bool)
	Expire(name, domain string)
}
