package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/softwareInkhub/auth-brmh/callback"
	"github.com/softwareInkhub/auth-brmh/session"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
	Next       string `json:"next,omitempty"`
}

// LoginHandler authenticates a credential login. Remember-me selects the
// durable tier; an unconfirmed account answers with needsVerification so
// the UI routes into the verification flow instead of retrying.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "invalid request body"})
			return
		}

		tokens, err := s.gateway.Login(r.Context(), req.Identifier, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		mode := session.ModeEphemeral
		if req.RememberMe {
			mode = session.ModeDurable
		}
		sess, err := s.sessionFor(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		sess.Save(tokens, mode)

		dest := req.Next
		if dest == "" {
			dest = s.config.GetDefaultDestination()
		}
		redirect, err := callback.HandOffURL(dest, s.config.GetAppHost(), tokens)
		if err != nil {
			redirect = s.config.GetDefaultDestination()
		}

		log.Info().Str("destination", loggableDestination(redirect)).Msg("login succeeded")
		writeJSON(w, http.StatusOK, apiResponse{Success: true, RedirectURL: redirect})
	}
}

// LogoutHandler clears both tiers and expires the mirrored cookies.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessionFor(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		sess.Clear()
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

type forgotPasswordRequest struct {
	Identifier string `json:"identifier"`
}

func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordRequest
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "invalid request body"})
			return
		}
		if err := s.gateway.RequestPasswordReset(r.Context(), req.Identifier); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

type resetPasswordRequest struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordRequest
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Error: "invalid request body"})
			return
		}
		if err := s.gateway.ConfirmPasswordReset(r.Context(), req.Identifier, req.Code, req.NewPassword); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
