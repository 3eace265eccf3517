package gateway

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrValidation is a local input failure. Nothing was sent over the
	// network.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials means the provider rejected the identifier or
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountNotConfirmed means the account exists but its identifier
	// was never verified. Callers route to the verification flow.
	ErrAccountNotConfirmed = errors.New("account not confirmed")

	// ErrAlreadyExists means an account already exists for the identifier.
	ErrAlreadyExists = errors.New("account already exists")

	// ErrInvalidCode means the verification or reset code was rejected.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrRateLimited means the backend refused due to attempt limits.
	// Retry is a user decision, never automatic.
	ErrRateLimited = errors.New("too many attempts")

	// ErrNetwork is a transport-level failure. The only taxonomy member a
	// caller may offer an explicit retry for.
	ErrNetwork = errors.New("network error")

	// ErrUnknown carries a backend message that matched no other category.
	ErrUnknown = errors.New("request failed")
)

// classifyBackendError maps a backend failure message into the taxonomy.
// The original message is preserved in the wrap so UIs can show it.
func classifyBackendError(statusCode int, message string) error {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "not confirmed") || strings.Contains(lower, "not verified"):
		return errors.Wrap(ErrAccountNotConfirmed, message)
	case strings.Contains(lower, "already exists") ||
		strings.Contains(lower, "already registered") ||
		strings.Contains(lower, "usernameexists"):
		return errors.Wrap(ErrAlreadyExists, message)
	case strings.Contains(lower, "code") &&
		(strings.Contains(lower, "invalid") || strings.Contains(lower, "mismatch") || strings.Contains(lower, "expired")):
		return errors.Wrap(ErrInvalidCode, message)
	case strings.Contains(lower, "too many") ||
		strings.Contains(lower, "limit exceeded") ||
		statusCode == http.StatusTooManyRequests:
		return errors.Wrap(ErrRateLimited, message)
	case strings.Contains(lower, "incorrect username or password") ||
		strings.Contains(lower, "invalid credentials") ||
		strings.Contains(lower, "not authorized") ||
		statusCode == http.StatusUnauthorized:
		return errors.Wrap(ErrInvalidCredentials, message)
	default:
		return errors.Wrap(ErrUnknown, message)
	}
}
