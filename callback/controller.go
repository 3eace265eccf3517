// Package callback drives the OAuth redirect target: validate the
// handshake, exchange the code, persist the session and compute the
// post-login redirect, handing tokens across origins only via URL
// fragments.
package callback

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/softwareInkhub/auth-brmh/oauthstate"
	"github.com/softwareInkhub/auth-brmh/session"
)

// Status is the terminal state of one callback.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// User-facing failure messages. The state-verification message is
// deliberately uniform: it must not reveal whether a handshake existed.
const (
	msgMissingParams = "missing code or state in callback"
	msgStateFailed   = "state verification failed"
	msgSignedIn      = "signed in successfully"
)

// Params are the query parameters of the provider redirect.
type Params struct {
	Code        string
	State       string
	Error       string
	ErrorDetail string
	Next        string
}

// Outcome is the terminal result of handling a callback. RedirectURL is
// only set on success.
type Outcome struct {
	Status      Status
	Message     string
	RedirectURL string
}

// HandshakeCompleter validates and consumes the stored OAuth handshake.
type HandshakeCompleter interface {
	Complete(receivedState string) (oauthstate.Handshake, error)
}

// CodeExchanger swaps an authorization code for tokens.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, state string) (session.Tokens, error)
}

// SessionSaver persists an exchanged session.
type SessionSaver interface {
	Save(tokens session.Tokens, mode session.Mode)
}

// Controller is the callback state machine. Every failure is terminal;
// the user retries by navigating back to login, never automatically.
type Controller struct {
	handshakes  HandshakeCompleter
	exchanger   CodeExchanger
	sessions    SessionSaver
	appHost     string
	defaultDest string
}

// Option modifies a Controller.
type Option func(*Controller)

// WithAppHost sets the identity app's own host (e.g. "auth.brmh.in").
// Destinations outside its registrable domain get the token fragment.
func WithAppHost(host string) Option {
	return func(c *Controller) { c.appHost = host }
}

// WithDefaultDestination sets the destination used when neither a stored
// return URL nor a next parameter is present. Defaults to "/".
func WithDefaultDestination(dest string) Option {
	return func(c *Controller) { c.defaultDest = dest }
}

// New creates a Controller.
func New(handshakes HandshakeCompleter, exchanger CodeExchanger, sessions SessionSaver, options ...Option) (*Controller, error) {
	if handshakes == nil || exchanger == nil || sessions == nil {
		return nil, errors.New("[callback.New] handshakes, exchanger and sessions are all required")
	}
	c := &Controller{
		handshakes:  handshakes,
		exchanger:   exchanger,
		sessions:    sessions,
		defaultDest: "/",
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Handle runs the callback rules in order and returns the terminal
// outcome. The handshake check always precedes the exchange call, so a
// forged callback never reaches the network.
func (c *Controller) Handle(ctx context.Context, params Params, mode session.Mode) Outcome {
	if params.Error != "" {
		msg := params.Error
		if params.ErrorDetail != "" {
			msg = params.ErrorDetail
		}
		return Outcome{Status: StatusError, Message: msg}
	}
	if params.Code == "" || params.State == "" {
		return Outcome{Status: StatusError, Message: msgMissingParams}
	}

	handshake, err := c.handshakes.Complete(params.State)
	if err != nil {
		return Outcome{Status: StatusError, Message: msgStateFailed}
	}

	tokens, err := c.exchanger.ExchangeCode(ctx, params.Code, params.State)
	if err != nil {
		return Outcome{Status: StatusError, Message: userMessage(err)}
	}
	c.sessions.Save(tokens, mode)

	dest := c.destination(handshake.ReturnTo, params.Next)
	redirect, err := HandOffURL(dest, c.appHost, tokens)
	if err != nil {
		redirect = c.defaultDest
	}
	return Outcome{
		Status:      StatusSuccess,
		Message:     msgSignedIn,
		RedirectURL: redirect,
	}
}

// destination picks the post-login URL: stored return URL first, then the
// next parameter, then the configured default.
func (c *Controller) destination(returnTo, next string) string {
	if returnTo != "" {
		return returnTo
	}
	if next != "" {
		return next
	}
	return c.defaultDest
}

// HandOffURL finalizes a post-login destination. Cross-origin destinations
// (different registrable domain than appHost, or localhost/loopback) get
// the tokens appended as a URL fragment; same-family destinations stay
// clean, since the mirrored cookies carry the session there.
func HandOffURL(dest, appHost string, tokens session.Tokens) (string, error) {
	parsed, err := url.Parse(dest)
	if err != nil {
		return "", errors.Wrap(err, "[HandOffURL] parsing destination")
	}
	if !crossOrigin(parsed, appHost) {
		return dest, nil
	}

	fragment := url.Values{}
	fragment.Set("access_token", tokens.AccessToken)
	fragment.Set("id_token", tokens.IDToken)
	if tokens.RefreshToken != "" {
		fragment.Set("refresh_token", tokens.RefreshToken)
	}
	parsed.Fragment = ""
	// Tokens travel in the fragment only. Fragments never reach servers
	// or proxy logs, unlike query strings.
	return parsed.String() + "#" + fragment.Encode(), nil
}

// crossOrigin reports whether dest lives outside the app's registrable
// domain. Relative URLs are same-origin; localhost and loopback addresses
// are always treated as cross-origin (the development hand-off case).
func crossOrigin(dest *url.URL, appHost string) bool {
	if dest.Host == "" {
		return false
	}
	host := strings.ToLower(dest.Hostname())
	if isLoopback(host) {
		return true
	}
	if appHost == "" {
		return true
	}
	return registrableDomain(host) != registrableDomain(strings.ToLower(hostnameOnly(appHost)))
}

func isLoopback(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// registrableDomain approximates eTLD+1 as the last two DNS labels, which
// is exact for the domain families this app serves.
func registrableDomain(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

func hostnameOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// userMessage strips the wrap prefixes from a gateway error so the UI
// shows the backend's own words.
func userMessage(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, "] "); idx >= 0 {
		msg = msg[idx+2:]
	}
	return msg
}
