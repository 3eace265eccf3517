package verification

import "github.com/pkg/errors"

var (
	// ErrNoIdentifier means the form carried no usable email or phone.
	ErrNoIdentifier = errors.New("no verifiable identifier")

	// ErrInFlight means the same transition was triggered while one is
	// outstanding. Callers treat it as a no-op.
	ErrInFlight = errors.New("request already in flight")

	// ErrAlreadyRegistered means the identifier belongs to a verified
	// account. The user should sign in instead.
	ErrAlreadyRegistered = errors.New("already registered and verified")

	// ErrAlreadyVerified means the channel finished verification.
	ErrAlreadyVerified = errors.New("identifier already verified")

	// ErrNoCodeSent means verification was attempted before a code was
	// requested.
	ErrNoCodeSent = errors.New("no verification code was requested")

	// ErrCooldown means a code went out moments ago on this channel.
	// Resending is allowed once the cooldown elapses.
	ErrCooldown = errors.New("verification code was sent moments ago")

	// ErrBadCode is a local shape failure: not exactly six digits.
	// Nothing was sent over the network.
	ErrBadCode = errors.New("malformed verification code")

	// ErrIncomplete means an entered identifier has not been verified.
	ErrIncomplete = errors.New("verification incomplete")

	// ErrNoCredential means the shell account still carries the random
	// placeholder password, so completing would strand the user without
	// a working credential.
	ErrNoCredential = errors.New("no user credential captured")
)
