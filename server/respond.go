package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/softwareInkhub/auth-brmh/gateway"
	"github.com/softwareInkhub/auth-brmh/verification"
)

type apiResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
	RedirectURL       string `json:"redirectUrl,omitempty"`
	NeedsVerification bool   `json:"needsVerification,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encoding response")
	}
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[readJSON]")
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	resp := apiResponse{
		Success:           false,
		Error:             userFacingMessage(err),
		NeedsVerification: errors.Is(err, gateway.ErrAccountNotConfirmed),
	}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gateway.ErrValidation),
		errors.Is(err, gateway.ErrInvalidCode),
		errors.Is(err, verification.ErrBadCode),
		errors.Is(err, verification.ErrNoCodeSent),
		errors.Is(err, verification.ErrNoIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, errNoRegistration),
		errors.Is(err, gateway.ErrAccountNotConfirmed),
		errors.Is(err, gateway.ErrAlreadyExists),
		errors.Is(err, verification.ErrAlreadyRegistered),
		errors.Is(err, verification.ErrAlreadyVerified),
		errors.Is(err, verification.ErrIncomplete),
		errors.Is(err, verification.ErrNoCredential):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrRateLimited),
		errors.Is(err, verification.ErrCooldown):
		return http.StatusTooManyRequests
	case errors.Is(err, verification.ErrInFlight):
		return http.StatusAccepted
	case errors.Is(err, gateway.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userFacingMessage strips the internal wrap prefixes, leaving the
// backend's or sentinel's own words.
func userFacingMessage(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, "] "); idx >= 0 {
		msg = msg[idx+2:]
	}
	return msg
}

// loggableDestination strips the fragment from a redirect URL so token
// hand-offs never reach the logs.
func loggableDestination(dest string) string {
	parsed, err := url.Parse(dest)
	if err != nil {
		return "(unparseable destination)"
	}
	parsed.Fragment = ""
	return parsed.String()
}
