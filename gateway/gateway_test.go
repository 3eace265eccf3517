package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/softwareInkhub/auth-brmh/gateway"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]string
}

type backendStub struct {
	status   int
	response string
	requests []recordedRequest
}

func (b *backendStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		b.requests = append(b.requests, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.status)
		_, _ = w.Write([]byte(b.response))
	}
}

func setupGateway(t *testing.T, status int, response string) (*gateway.Client, *backendStub) {
	t.Helper()
	stub := &backendStub{status: status, response: response}
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	client, err := gateway.New(server.URL)
	require.NoError(t, err)
	return client, stub
}

const tokenResponse = `{
	"success": true,
	"result": {
		"accessToken": {"jwtToken": "access-1"},
		"idToken": {"jwtToken": "id-1"},
		"refreshToken": {"token": "refresh-1"}
	}
}`

func TestClientLogin(t *testing.T) {
	t.Run("success decodes the nested token shape", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, tokenResponse)

		tokens, err := client.Login(context.Background(), "jane@example.com", "pw")
		require.NoError(t, err)
		require.Equal(t, "access-1", tokens.AccessToken)
		require.Equal(t, "id-1", tokens.IDToken)
		require.Equal(t, "refresh-1", tokens.RefreshToken)

		require.Len(t, stub.requests, 1)
		require.Equal(t, "/auth/login", stub.requests[0].Path)
		require.Equal(t, "jane@example.com", stub.requests[0].Body["username"])
	})

	t.Run("phone identifier normalized before sending", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, tokenResponse)

		_, err := client.Login(context.Background(), "98765 43210", "pw")
		require.NoError(t, err)
		require.Equal(t, "+919876543210", stub.requests[0].Body["username"])
	})

	t.Run("invalid identifier never reaches the network", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, tokenResponse)

		_, err := client.Login(context.Background(), "not valid!", "pw")
		require.ErrorIs(t, err, gateway.ErrValidation)
		require.Empty(t, stub.requests)
	})

	t.Run("unconfirmed account maps to ErrAccountNotConfirmed", func(t *testing.T) {
		client, _ := setupGateway(t, http.StatusBadRequest,
			`{"success": false, "error": "User is not confirmed."}`)

		_, err := client.Login(context.Background(), "jane@example.com", "pw")
		require.ErrorIs(t, err, gateway.ErrAccountNotConfirmed)
		require.Contains(t, err.Error(), "User is not confirmed.")
	})

	t.Run("401 maps to ErrInvalidCredentials", func(t *testing.T) {
		client, _ := setupGateway(t, http.StatusUnauthorized,
			`{"success": false, "error": "Incorrect username or password."}`)

		_, err := client.Login(context.Background(), "jane@example.com", "bad")
		require.ErrorIs(t, err, gateway.ErrInvalidCredentials)
	})

	t.Run("transport failure maps to ErrNetwork", func(t *testing.T) {
		stub := &backendStub{}
		server := httptest.NewServer(stub.handler())
		client, err := gateway.New(server.URL)
		require.NoError(t, err)
		server.Close()

		_, err = client.Login(context.Background(), "jane@example.com", "pw")
		require.ErrorIs(t, err, gateway.ErrNetwork)
	})
}

func TestClientRegister(t *testing.T) {
	t.Run("requires email or phone locally", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, `{"success": true}`)

		err := client.Register(context.Background(), gateway.RegisterParams{
			FirstName: "Jane", LastName: "Doe", Password: "pw",
		})
		require.ErrorIs(t, err, gateway.ErrValidation)
		require.Empty(t, stub.requests)
	})

	t.Run("phone normalized in the signup body", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, `{"success": true}`)

		err := client.Register(context.Background(), gateway.RegisterParams{
			Phone: "9876543210", Password: "pw",
		})
		require.NoError(t, err)
		require.Equal(t, "/auth/signup", stub.requests[0].Path)
		require.Equal(t, "+919876543210", stub.requests[0].Body["phoneNumber"])
	})

	t.Run("existing account maps to ErrAlreadyExists", func(t *testing.T) {
		client, _ := setupGateway(t, http.StatusConflict,
			`{"success": false, "error": "An account with the given email already exists."}`)

		err := client.Register(context.Background(), gateway.RegisterParams{
			Email: "jane@example.com", Password: "pw",
		})
		require.ErrorIs(t, err, gateway.ErrAlreadyExists)
	})
}

func TestClientAuthorizationURL(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK,
			`{"success": true, "result": {"authUrl": "https://idp.example.com/authorize?state=s1", "state": "s1"}}`)

		authURL, err := client.AuthorizationURL(context.Background(), "Google")
		require.NoError(t, err)
		require.Equal(t, "s1", authURL.State)
		require.Equal(t, "/auth/oauth-url", stub.requests[0].Path)
		require.Equal(t, "provider=Google", stub.requests[0].Query)
		require.Equal(t, http.MethodGet, stub.requests[0].Method)
	})

	t.Run("empty payload is an error", func(t *testing.T) {
		client, _ := setupGateway(t, http.StatusOK, `{"success": true, "result": {}}`)

		_, err := client.AuthorizationURL(context.Background(), "Google")
		require.ErrorIs(t, err, gateway.ErrUnknown)
	})
}

func TestClientExchangeCode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, tokenResponse)

		tokens, err := client.ExchangeCode(context.Background(), "code-1", "state-1")
		require.NoError(t, err)
		require.Equal(t, "access-1", tokens.AccessToken)
		require.Equal(t, "/auth/token", stub.requests[0].Path)
		require.Equal(t, "code-1", stub.requests[0].Body["code"])
		require.Equal(t, "state-1", stub.requests[0].Body["state"])
	})

	t.Run("missing code rejected locally", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, tokenResponse)

		_, err := client.ExchangeCode(context.Background(), "", "state-1")
		require.ErrorIs(t, err, gateway.ErrValidation)
		require.Empty(t, stub.requests)
	})
}

func TestClientVerificationEndpoints(t *testing.T) {
	t.Run("email verify", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, `{"success": true}`)

		require.NoError(t, client.VerifyEmailCode(context.Background(), "jane@example.com", "123456"))
		require.Equal(t, "/auth/verify-email", stub.requests[0].Path)
		require.Equal(t, "123456", stub.requests[0].Body["code"])
	})

	t.Run("phone resend normalizes", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, `{"success": true}`)

		require.NoError(t, client.SendPhoneCode(context.Background(), "9876543210"))
		require.Equal(t, "/auth/phone/resend-otp", stub.requests[0].Path)
		require.Equal(t, "+919876543210", stub.requests[0].Body["phoneNumber"])
	})

	t.Run("bad code maps to ErrInvalidCode", func(t *testing.T) {
		client, _ := setupGateway(t, http.StatusBadRequest,
			`{"success": false, "error": "Invalid verification code provided, please try again."}`)

		err := client.VerifyPhoneCode(context.Background(), "+919876543210", "000000")
		require.ErrorIs(t, err, gateway.ErrInvalidCode)
	})

	t.Run("429 maps to ErrRateLimited", func(t *testing.T) {
		client, _ := setupGateway(t, http.StatusTooManyRequests,
			`{"success": false, "error": "Attempt limit exceeded, please try after some time."}`)

		err := client.SendEmailCode(context.Background(), "jane@example.com")
		require.ErrorIs(t, err, gateway.ErrRateLimited)
	})
}

func TestClientCheckIdentifierExists(t *testing.T) {
	client, stub := setupGateway(t, http.StatusOK,
		`{"success": true, "result": {"exists": true, "verified": false}}`)

	existence, err := client.CheckIdentifierExists(context.Background(), "", "+919876543210")
	require.NoError(t, err)
	require.True(t, existence.Exists)
	require.False(t, existence.Verified)
	require.Equal(t, "/auth/check-user-exists", stub.requests[0].Path)

	t.Run("requires at least one identifier", func(t *testing.T) {
		_, err := client.CheckIdentifierExists(context.Background(), "", "")
		require.ErrorIs(t, err, gateway.ErrValidation)
	})
}

func TestClientPasswordReset(t *testing.T) {
	t.Run("request with phone identifier", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, `{"success": true}`)

		require.NoError(t, client.RequestPasswordReset(context.Background(), "9876543210"))
		require.Equal(t, "/auth/forgot-password", stub.requests[0].Path)
		require.Equal(t, "+919876543210", stub.requests[0].Body["username"])
	})

	t.Run("confirm requires a new password", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, `{"success": true}`)

		err := client.ConfirmPasswordReset(context.Background(), "jane@example.com", "123456", "")
		require.ErrorIs(t, err, gateway.ErrValidation)
		require.Empty(t, stub.requests)
	})

	t.Run("confirm success", func(t *testing.T) {
		client, stub := setupGateway(t, http.StatusOK, `{"success": true}`)

		err := client.ConfirmPasswordReset(context.Background(), "jane@example.com", "123456", "new-pw")
		require.NoError(t, err)
		require.Equal(t, "/auth/confirm-forgot-password", stub.requests[0].Path)
		require.Equal(t, "new-pw", stub.requests[0].Body["newPassword"])
	})
}

func TestClientUnparseableResponse(t *testing.T) {
	client, _ := setupGateway(t, http.StatusInternalServerError, "<html>bad gateway</html>")

	err := client.SendEmailCode(context.Background(), "jane@example.com")
	require.ErrorIs(t, err, gateway.ErrUnknown)
	require.Contains(t, err.Error(), "500")
}
