package session

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Identity is the lightweight projection decoded from the ID token
// payload. It is a display convenience only and must never drive
// authorization decisions.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
}

// ErrIdentityDecode means the ID token payload could not be decoded.
// Callers treat this as "no projection", never as an authentication
// failure.
var ErrIdentityDecode = errors.New("id token payload decode failed")

// DeriveIdentity decodes the payload segment of idToken without verifying
// the signature. Verification is the backend's job; this side only reads
// display fields.
func DeriveIdentity(idToken string) (Identity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return Identity{}, errors.Wrap(ErrIdentityDecode, err.Error())
	}

	str := func(key string) string {
		if v, ok := claims[key].(string); ok {
			return v
		}
		return ""
	}

	id := Identity{
		SubjectID: str("sub"),
		Email:     str("email"),
	}
	id.DisplayName = str("name")
	if id.DisplayName == "" {
		id.DisplayName = str("given_name")
	}
	if id.SubjectID == "" {
		return Identity{}, errors.Wrap(ErrIdentityDecode, "[DeriveIdentity] payload has no sub claim")
	}
	return id, nil
}
