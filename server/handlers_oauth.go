package server

import (
	"fmt"
	"html"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/softwareInkhub/auth-brmh/callback"
	"github.com/softwareInkhub/auth-brmh/session"
)

// OAuthInitiateHandler begins the authorization-code flow for the
// provider in the path and redirects the browser to the provider.
func (s *Server) OAuthInitiateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")
		next := r.URL.Query().Get("next")

		authURL, err := s.handshakes.Begin(r.Context(), provider, next)
		if err != nil {
			writeError(w, err)
			return
		}

		log.Info().Str("provider", provider).Msg("oauth flow started")
		http.Redirect(w, r, authURL.URL, http.StatusFound)
	}
}

// CallbackHandler is the provider redirect target. The controller runs
// the full validation-exchange-save sequence; the handler only renders
// its terminal outcome.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessionFor(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		controller, err := callback.New(s.handshakes, s.gateway, sess,
			callback.WithAppHost(s.config.GetAppHost()),
			callback.WithDefaultDestination(s.config.GetDefaultDestination()))
		if err != nil {
			writeError(w, err)
			return
		}

		q := r.URL.Query()
		outcome := controller.Handle(r.Context(), callback.Params{
			Code:        q.Get("code"),
			State:       q.Get("state"),
			Error:       q.Get("error"),
			ErrorDetail: q.Get("error_description"),
			Next:        q.Get("next"),
		}, session.ModeDurable)

		if outcome.Status != callback.StatusSuccess {
			log.Warn().Str("reason", outcome.Message).Msg("oauth callback rejected")
			renderCallbackPage(w, http.StatusBadRequest, outcome.Message, "")
			return
		}

		log.Info().Str("destination", loggableDestination(outcome.RedirectURL)).Msg("oauth callback succeeded")
		renderCallbackPage(w, http.StatusOK, outcome.Message, outcome.RedirectURL)
	}
}

// renderCallbackPage shows the terminal state briefly, then redirects via
// meta refresh on success. The delay is a UI affordance only.
func renderCallbackPage(w http.ResponseWriter, status int, message, redirectURL string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	refresh := ""
	if redirectURL != "" {
		refresh = fmt.Sprintf(`<meta http-equiv="refresh" content="2;url=%s">`, html.EscapeString(redirectURL))
	}
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>%s<title>Signing in</title></head>
<body><p>%s</p></body>
</html>
`, refresh, html.EscapeString(message))
}
