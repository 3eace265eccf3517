// Package identifier classifies user-supplied login/registration
// identifiers as emails, phone numbers or usernames, normalizing phone
// numbers to E.164.
package identifier

import (
	"regexp"
	"strings"
)

// Kind is the classification result category.
type Kind string

const (
	KindEmail    Kind = "email"
	KindPhone    Kind = "phone"
	KindUsername Kind = "username"
	KindInvalid  Kind = "invalid"
)

// Identifier is a classified, normalized identifier. For KindPhone, Value
// is the E.164 form; for the other kinds it is the trimmed input.
type Identifier struct {
	Kind  Kind
	Value string
}

// DefaultCountryCode is applied to bare 10-digit phone numbers when the
// classifier is constructed without an explicit code.
const DefaultCountryCode = "+91"

var (
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe    = regexp.MustCompile(`^\+?[1-9][0-9]{9,14}$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9._-]{3,}$`)
	separators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// Classifier classifies raw identifier strings. Classification is pure and
// idempotent: re-classifying an already-normalized phone number yields the
// same value.
type Classifier struct {
	countryCode string // with leading "+", e.g. "+91"
}

// New returns a Classifier using countryCode for bare national numbers.
// An empty countryCode falls back to DefaultCountryCode.
func New(countryCode string) *Classifier {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	return &Classifier{countryCode: countryCode}
}

// Classify decides whether raw is an email, a phone number or a username.
// Emails win over phones, phones over usernames, so an all-digit input is a
// phone, never a username.
func (c *Classifier) Classify(raw string) Identifier {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identifier{Kind: KindInvalid}
	}
	if emailRe.MatchString(trimmed) {
		return Identifier{Kind: KindEmail, Value: trimmed}
	}
	digits := separators.Replace(trimmed)
	if phoneRe.MatchString(digits) {
		return Identifier{Kind: KindPhone, Value: c.normalizePhone(digits)}
	}
	if usernameRe.MatchString(trimmed) {
		return Identifier{Kind: KindUsername, Value: trimmed}
	}
	return Identifier{Kind: KindInvalid}
}

// ClassifyContact is Classify restricted to the kinds a verification code
// can be delivered to. Usernames come back as KindInvalid.
func (c *Classifier) ClassifyContact(raw string) Identifier {
	id := c.Classify(raw)
	if id.Kind == KindUsername {
		return Identifier{Kind: KindInvalid}
	}
	return id
}

// normalizePhone turns a separator-free digit string into E.164.
// digits has already matched phoneRe.
func (c *Classifier) normalizePhone(digits string) string {
	if strings.HasPrefix(digits, "+") {
		return digits
	}
	cc := strings.TrimPrefix(c.countryCode, "+")
	switch {
	case len(digits) == 10:
		// Bare national number: apply the region default.
		return c.countryCode + digits
	case len(digits) == len(cc)+10 && strings.HasPrefix(digits, cc):
		// Country code present but unprefixed.
		return "+" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		// NANP number with country code.
		return "+" + digits
	default:
		return "+" + digits
	}
}
