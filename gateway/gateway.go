// Package gateway is the sole network boundary to the backend identity
// API. Every operation returns typed errors from the package taxonomy;
// transport failures never escape as raw errors.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/softwareInkhub/auth-brmh/identifier"
	"github.com/softwareInkhub/auth-brmh/oauthstate"
	"github.com/softwareInkhub/auth-brmh/session"
)

const defaultTimeout = 30 * time.Second

// Client calls the backend identity API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	classifier *identifier.Classifier
}

// Option modifies a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for
// testing and custom transports).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithClassifier replaces the identifier classifier (e.g. a different
// default country code).
func WithClassifier(classifier *identifier.Classifier) Option {
	return func(c *Client) { c.classifier = classifier }
}

// New creates a Client for the identity API at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[gateway.New] base URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		classifier: identifier.New(identifier.DefaultCountryCode),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// envelope is the uniform response shape of the identity API.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// tokenResult mirrors the backend's nested token payload.
type tokenResult struct {
	AccessToken struct {
		JwtToken string `json:"jwtToken"`
	} `json:"accessToken"`
	IDToken struct {
		JwtToken string `json:"jwtToken"`
	} `json:"idToken"`
	RefreshToken struct {
		Token string `json:"token"`
	} `json:"refreshToken"`
}

func (r tokenResult) tokens() session.Tokens {
	return session.Tokens{
		AccessToken:  r.AccessToken.JwtToken,
		IDToken:      r.IDToken.JwtToken,
		RefreshToken: r.RefreshToken.Token,
	}
}

// Login authenticates with an email, E.164 phone or username identifier
// plus password. Invalid identifiers are rejected before any network call.
func (c *Client) Login(ctx context.Context, rawIdentifier, password string) (session.Tokens, error) {
	ident := c.classifier.Classify(rawIdentifier)
	if ident.Kind == identifier.KindInvalid {
		return session.Tokens{}, errors.Wrap(ErrValidation, "identifier is not an email, phone number or username")
	}
	if password == "" {
		return session.Tokens{}, errors.Wrap(ErrValidation, "password is required")
	}

	var result tokenResult
	err := c.post(ctx, "/auth/login", map[string]string{
		"username": ident.Value,
		"password": password,
	}, &result)
	if err != nil {
		return session.Tokens{}, errors.Wrap(err, "[Client.Login]")
	}
	return result.tokens(), nil
}

// RegisterParams is the account-creation input. At least one of Email and
// Phone is required; Phone is normalized before transmission.
type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

// Register creates an account. Creation triggers the backend to send a
// verification code to the supplied channel.
func (c *Client) Register(ctx context.Context, params RegisterParams) error {
	if params.Email == "" && params.Phone == "" {
		return errors.Wrap(ErrValidation, "either an email or a phone number is required")
	}
	phone := params.Phone
	if phone != "" {
		ident := c.classifier.ClassifyContact(phone)
		if ident.Kind != identifier.KindPhone {
			return errors.Wrap(ErrValidation, "phone number is not valid")
		}
		phone = ident.Value
	}

	err := c.post(ctx, "/auth/signup", map[string]string{
		"firstName":   params.FirstName,
		"lastName":    params.LastName,
		"email":       params.Email,
		"phoneNumber": phone,
		"password":    params.Password,
	}, nil)
	return errors.Wrap(err, "[Client.Register]")
}

// authURLResult mirrors the backend's authorization-URL payload.
type authURLResult struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

// AuthorizationURL asks the backend to mint a provider authorization URL.
// The backend holds the client secret and PKCE verifier; neither reaches
// this side. Satisfies oauthstate.URLSource.
func (c *Client) AuthorizationURL(ctx context.Context, provider string) (oauthstate.AuthorizationURL, error) {
	var result authURLResult
	path := "/auth/oauth-url?provider=" + url.QueryEscape(provider)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return oauthstate.AuthorizationURL{}, errors.Wrap(err, "[Client.AuthorizationURL]")
	}
	if result.AuthURL == "" || result.State == "" {
		return oauthstate.AuthorizationURL{}, errors.Wrap(ErrUnknown, "backend returned an empty authorization URL")
	}
	return oauthstate.AuthorizationURL{URL: result.AuthURL, State: result.State}, nil
}

var _ oauthstate.URLSource = (*Client)(nil)

// ExchangeCode swaps an authorization code for tokens. The code is single
// use; the backend enforces that, so callers must not retry a failed
// exchange automatically.
func (c *Client) ExchangeCode(ctx context.Context, code, state string) (session.Tokens, error) {
	if code == "" {
		return session.Tokens{}, errors.Wrap(ErrValidation, "authorization code is required")
	}
	var result tokenResult
	err := c.post(ctx, "/auth/token", map[string]string{
		"code":  code,
		"state": state,
	}, &result)
	if err != nil {
		return session.Tokens{}, errors.Wrap(err, "[Client.ExchangeCode]")
	}
	return result.tokens(), nil
}

// SendEmailCode asks the backend to (re)send the email verification code.
func (c *Client) SendEmailCode(ctx context.Context, email string) error {
	if c.classifier.Classify(email).Kind != identifier.KindEmail {
		return errors.Wrap(ErrValidation, "email address is not valid")
	}
	err := c.post(ctx, "/auth/resend-email-verification", map[string]string{"email": email}, nil)
	return errors.Wrap(err, "[Client.SendEmailCode]")
}

// VerifyEmailCode submits an email verification code.
func (c *Client) VerifyEmailCode(ctx context.Context, email, code string) error {
	err := c.post(ctx, "/auth/verify-email", map[string]string{
		"email": email,
		"code":  code,
	}, nil)
	return errors.Wrap(err, "[Client.VerifyEmailCode]")
}

// SendPhoneCode asks the backend to (re)send the phone OTP. phone must
// already be E.164.
func (c *Client) SendPhoneCode(ctx context.Context, phone string) error {
	ident := c.classifier.ClassifyContact(phone)
	if ident.Kind != identifier.KindPhone {
		return errors.Wrap(ErrValidation, "phone number is not valid")
	}
	err := c.post(ctx, "/auth/phone/resend-otp", map[string]string{"phoneNumber": ident.Value}, nil)
	return errors.Wrap(err, "[Client.SendPhoneCode]")
}

// VerifyPhoneCode submits a phone OTP.
func (c *Client) VerifyPhoneCode(ctx context.Context, phone, code string) error {
	ident := c.classifier.ClassifyContact(phone)
	if ident.Kind != identifier.KindPhone {
		return errors.Wrap(ErrValidation, "phone number is not valid")
	}
	err := c.post(ctx, "/auth/phone/verify", map[string]string{
		"phoneNumber": ident.Value,
		"code":        code,
	}, nil)
	return errors.Wrap(err, "[Client.VerifyPhoneCode]")
}

// Existence is the result of an identifier existence probe.
type Existence struct {
	Exists   bool `json:"exists"`
	Verified bool `json:"verified"`
}

// CheckIdentifierExists probes whether an account exists for email and/or
// phone and whether it is already verified.
func (c *Client) CheckIdentifierExists(ctx context.Context, email, phone string) (Existence, error) {
	if email == "" && phone == "" {
		return Existence{}, errors.Wrap(ErrValidation, "either an email or a phone number is required")
	}
	var result Existence
	err := c.post(ctx, "/auth/check-user-exists", map[string]string{
		"email":       email,
		"phoneNumber": phone,
	}, &result)
	if err != nil {
		return Existence{}, errors.Wrap(err, "[Client.CheckIdentifierExists]")
	}
	return result, nil
}

// RequestPasswordReset starts the forgot-password flow for an email or
// phone identifier.
func (c *Client) RequestPasswordReset(ctx context.Context, rawIdentifier string) error {
	ident := c.classifier.ClassifyContact(rawIdentifier)
	if ident.Kind == identifier.KindInvalid {
		return errors.Wrap(ErrValidation, "identifier is not an email or phone number")
	}
	err := c.post(ctx, "/auth/forgot-password", map[string]string{"username": ident.Value}, nil)
	return errors.Wrap(err, "[Client.RequestPasswordReset]")
}

// ConfirmPasswordReset completes the forgot-password flow with the emailed
// or texted code and the new password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, rawIdentifier, code, newPassword string) error {
	ident := c.classifier.ClassifyContact(rawIdentifier)
	if ident.Kind == identifier.KindInvalid {
		return errors.Wrap(ErrValidation, "identifier is not an email or phone number")
	}
	if newPassword == "" {
		return errors.Wrap(ErrValidation, "new password is required")
	}
	err := c.post(ctx, "/auth/confirm-forgot-password", map[string]string{
		"username":    ident.Value,
		"code":        code,
		"newPassword": newPassword,
	}, nil)
	return errors.Wrap(err, "[Client.ConfirmPasswordReset]")
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// do performs one API round trip. Transport failures surface as
// ErrNetwork; backend failures are mapped into the error taxonomy with the
// backend's message preserved verbatim for pattern-matching callers.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] encoding request body")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "[Client.do] building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(ErrNetwork, err.Error())
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return errors.Wrapf(ErrUnknown, "unparseable response (status %d)", resp.StatusCode)
		}
		return errors.Wrapf(ErrUnknown, "request failed (status %d)", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return classifyBackendError(resp.StatusCode, env.errorMessage())
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return errors.Wrap(ErrUnknown, "decoding result payload")
		}
	}
	return nil
}

func (e envelope) errorMessage() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
