// Package storage models the browser's key-value storage tiers and cookie
// jar as injectable interfaces. Components depend on these interfaces, never
// on ambient global state, so tests can run against in-memory fakes.
package storage

// Tier names the two browser storage tiers.
type Tier string

const (
	// TierDurable survives browser restarts (localStorage semantics).
	TierDurable Tier = "durable"
	// TierEphemeral is cleared when the browsing session ends
	// (sessionStorage semantics).
	TierEphemeral Tier = "ephemeral"
)

// Store is a synchronous string key-value store with platform-primitive
// semantics: writes always succeed, reads of absent keys report absence, and
// concurrent same-origin writers resolve last-write-wins. There is no
// error channel because the browser primitives it models have none.
type Store interface {
	Set(key, value string)
	Get(key string) (string, bool)
	Delete(key string)
	Keys() []string
}
