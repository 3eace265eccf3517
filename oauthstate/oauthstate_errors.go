package oauthstate

import "github.com/pkg/errors"

var (
	// ErrNoHandshake means a callback arrived with no handshake in storage.
	ErrNoHandshake = errors.New("no oauth handshake in progress")

	// ErrStateMismatch means the state returned by the provider does not
	// match the stored one. Treat as a forged or replayed callback.
	ErrStateMismatch = errors.New("oauth state mismatch")
)
