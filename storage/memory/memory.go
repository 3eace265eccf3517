// Package memory provides in-process implementations of the storage
// interfaces, used by the hosting server and by tests.
package memory

import (
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/softwareInkhub/auth-brmh/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is a go-cache backed key-value tier. Entries never expire on their
// own; the tier's lifetime is the process's, which matches the
// browser-profile ownership model the library assumes.
type Store struct {
	c *gocache.Cache
}

func NewStore() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *Store) Set(key, value string) {
	s.c.Set(key, value, gocache.NoExpiration)
}

func (s *Store) Get(key string) (string, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", false
	}
	value, ok := v.(string)
	return value, ok
}

func (s *Store) Delete(key string) {
	s.c.Delete(key)
}

func (s *Store) Keys() []string {
	items := s.c.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}

var _ storage.CookieJar = (*Jar)(nil)

// Jar is a thread-safe in-memory cookie jar. Expired cookies become
// unreadable immediately, matching browser behavior.
type Jar struct {
	mu      sync.RWMutex
	cookies map[string]storage.Cookie
}

func NewJar() *Jar {
	return &Jar{cookies: make(map[string]storage.Cookie)}
}

func (j *Jar) Set(c storage.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c.MaxAge < 0 {
		delete(j.cookies, c.Name)
		return
	}
	j.cookies[c.Name] = c
}

func (j *Jar) Get(name string) (string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	c, ok := j.cookies[name]
	if !ok {
		return "", false
	}
	return c.Value, true
}

func (j *Jar) Expire(name, domain string) {
	j.Set(storage.Cookie{Name: name, Domain: domain, Path: "/", MaxAge: -1})
}

// All returns a snapshot of the live cookies by name, primarily for tests.
func (j *Jar) All() map[string]storage.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make(map[string]storage.Cookie, len(j.cookies))
	for name, c := range j.cookies {
		out[name] = c
	}
	return out
}
