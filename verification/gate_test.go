package verification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/softwareInkhub/auth-brmh/gateway"
	"github.com/softwareInkhub/auth-brmh/storage/memory"
	"github.com/softwareInkhub/auth-brmh/verification"
)

type fakeBackend struct {
	existence     gateway.Existence
	existenceErr  error
	registerErr   error
	verifyErr     error
	resendErr     error
	registered    []gateway.RegisterParams
	probes        int
	emailResends  []string
	phoneResends  []string
	emailVerifies []string
	phoneVerifies []string

	// onProbe, when set, runs inside CheckIdentifierExists. Used to
	// simulate a double-triggered UI event.
	onProbe func()

	// onResend, when set, runs inside the code-send calls. Used to hold a
	// resend open while a competing caller arrives.
	onResend func()
}

func (f *fakeBackend) Register(_ context.Context, params gateway.RegisterParams) error {
	f.registered = append(f.registered, params)
	return f.registerErr
}

func (f *fakeBackend) CheckIdentifierExists(_ context.Context, email, phone string) (gateway.Existence, error) {
	f.probes++
	if f.onProbe != nil {
		f.onProbe()
	}
	return f.existence, f.existenceErr
}

func (f *fakeBackend) SendEmailCode(_ context.Context, email string) error {
	f.emailResends = append(f.emailResends, email)
	if f.onResend != nil {
		f.onResend()
	}
	return f.resendErr
}

func (f *fakeBackend) VerifyEmailCode(_ context.Context, email, code string) error {
	f.emailVerifies = append(f.emailVerifies, email+":"+code)
	return f.verifyErr
}

func (f *fakeBackend) SendPhoneCode(_ context.Context, phone string) error {
	f.phoneResends = append(f.phoneResends, phone)
	if f.onResend != nil {
		f.onResend()
	}
	return f.resendErr
}

func (f *fakeBackend) VerifyPhoneCode(_ context.Context, phone, code string) error {
	f.phoneVerifies = append(f.phoneVerifies, phone+":"+code)
	return f.verifyErr
}

var _ verification.Backend = (*fakeBackend)(nil)

func setupGate(t *testing.T, form verification.Form, options ...verification.Option) (*verification.Gate, *fakeBackend, *memory.Store) {
	t.Helper()
	backend := &fakeBackend{}
	bookkeeping := memory.NewStore()
	gate, err := verification.New(backend, bookkeeping, form, options...)
	require.NoError(t, err)
	return gate, backend, bookkeeping
}

func TestGateNew(t *testing.T) {
	t.Run("requires an identifier", func(t *testing.T) {
		_, err := verification.New(&fakeBackend{}, memory.NewStore(), verification.Form{Password: "pw"})
		require.ErrorIs(t, err, verification.ErrNoIdentifier)
	})

	t.Run("rejects a malformed email", func(t *testing.T) {
		_, err := verification.New(&fakeBackend{}, memory.NewStore(),
			verification.Form{Email: "not-an-email", Password: "pw"})
		require.ErrorIs(t, err, verification.ErrNoIdentifier)
	})

	t.Run("normalizes the phone at construction", func(t *testing.T) {
		gate, backend, _ := setupGate(t, verification.Form{Phone: "98765-43210", Password: "pw"})
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelPhone))
		require.Equal(t, "+919876543210", backend.registered[0].Phone)
	})
}

func TestGatePhoneRegistrationScenario(t *testing.T) {
	// A user enters a bare local phone number, receives a code on the
	// shell account, verifies it, and completes without a second signup.
	gate, backend, bookkeeping := setupGate(t, verification.Form{
		FirstName: "Jane",
		Phone:     "9876543210",
		Password:  "chosen-pw",
	})

	require.Equal(t, verification.StateUnverified, gate.State(verification.ChannelPhone))

	require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelPhone))
	require.Equal(t, verification.StateCodeSent, gate.State(verification.ChannelPhone))
	require.Len(t, backend.registered, 1)
	require.Equal(t, "+919876543210", backend.registered[0].Phone)
	require.Equal(t, "chosen-pw", backend.registered[0].Password)

	require.NoError(t, gate.VerifyCode(context.Background(), verification.ChannelPhone, "123456"))
	require.Equal(t, verification.StateVerified, gate.State(verification.ChannelPhone))
	require.Equal(t, []string{"+919876543210:123456"}, backend.phoneVerifies)

	dest, err := gate.Complete()
	require.NoError(t, err)
	require.Equal(t, "/login?registered=1", dest)
	require.Len(t, backend.registered, 1, "completion must not create a second account")

	t.Run("bookkeeping cleared", func(t *testing.T) {
		_, ok := bookkeeping.Get("verified_phone")
		require.False(t, ok)
	})
}

func TestGateRequestCode(t *testing.T) {
	t.Run("existing unconfirmed record gets a resend, not a signup", func(t *testing.T) {
		gate, backend, _ := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})
		backend.existence = gateway.Existence{Exists: true, Verified: false}

		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		require.Empty(t, backend.registered)
		require.Equal(t, []string{"jane@example.com"}, backend.emailResends)
		require.Equal(t, verification.StateCodeSent, gate.State(verification.ChannelEmail))
	})

	t.Run("verified record surfaces a conflict and stays unverified", func(t *testing.T) {
		gate, backend, _ := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})
		backend.existence = gateway.Existence{Exists: true, Verified: true}

		err := gate.RequestCode(context.Background(), verification.ChannelEmail)
		require.ErrorIs(t, err, verification.ErrAlreadyRegistered)
		require.Equal(t, verification.StateUnverified, gate.State(verification.ChannelEmail))
		require.Empty(t, backend.registered)
		require.Empty(t, backend.emailResends)
	})

	t.Run("resend re-enters the probe each time", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		gate, backend, _ := setupGate(t,
			verification.Form{Email: "jane@example.com", Password: "pw"},
			verification.WithNowTime(func() time.Time { return now }))

		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		backend.existence = gateway.Existence{Exists: true}
		now = now.Add(61 * time.Second)
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		now = now.Add(61 * time.Second)
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		require.Equal(t, 3, backend.probes)
		require.Len(t, backend.registered, 1)
		require.Len(t, backend.emailResends, 2)
	})

	t.Run("resend inside the cooldown is rejected", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		gate, backend, _ := setupGate(t,
			verification.Form{Email: "jane@example.com", Password: "pw"},
			verification.WithNowTime(func() time.Time { return now }))

		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))

		now = now.Add(30 * time.Second)
		err := gate.RequestCode(context.Background(), verification.ChannelEmail)
		require.ErrorIs(t, err, verification.ErrCooldown)
		require.Equal(t, 1, backend.probes, "a cooled-down resend must not reach the network")

		now = now.Add(31 * time.Second)
		backend.existence = gateway.Existence{Exists: true}
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		require.Len(t, backend.emailResends, 1)
	})

	t.Run("second channel reuses the provisioned account", func(t *testing.T) {
		gate, backend, _ := setupGate(t, verification.Form{
			Email:    "jane@example.com",
			Phone:    "9876543210",
			Password: "pw",
		})

		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelPhone))
		require.Len(t, backend.registered, 1)
		require.Equal(t, []string{"+919876543210"}, backend.phoneResends)
	})

	t.Run("lost provisioning race falls back to the resend path", func(t *testing.T) {
		gate, backend, _ := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})
		backend.registerErr = gateway.ErrAlreadyExists

		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		require.Equal(t, verification.StateCodeSent, gate.State(verification.ChannelEmail))
	})

	t.Run("double trigger while in flight is rejected", func(t *testing.T) {
		gate, backend, _ := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})
		var reentrant error
		backend.onProbe = func() {
			backend.onProbe = nil
			reentrant = gate.RequestCode(context.Background(), verification.ChannelEmail)
		}

		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		require.ErrorIs(t, reentrant, verification.ErrInFlight)
		require.Equal(t, 1, backend.probes)
	})

	t.Run("parallel resend while one is outstanding", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		backend := &fakeBackend{existence: gateway.Existence{Exists: true}}
		gate, err := verification.New(backend, memory.NewStore(),
			verification.Form{Email: "jane@example.com", Password: "pw"},
			verification.WithNowTime(func() time.Time { return now }))
		require.NoError(t, err)
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))

		now = now.Add(61 * time.Second)
		entered := make(chan struct{})
		release := make(chan struct{})
		backend.onResend = func() {
			backend.onResend = nil
			close(entered)
			<-release
		}

		done := make(chan error, 1)
		go func() {
			done <- gate.RequestCode(context.Background(), verification.ChannelEmail)
		}()
		<-entered

		err = gate.RequestCode(context.Background(), verification.ChannelEmail)
		require.ErrorIs(t, err, verification.ErrInFlight)

		close(release)
		require.NoError(t, <-done)
		require.Len(t, backend.emailResends, 2, "the competing caller must not send a code")
	})

	t.Run("pending email recorded", func(t *testing.T) {
		gate, _, bookkeeping := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))

		pending, ok := bookkeeping.Get("pending_verification_email")
		require.True(t, ok)
		require.Equal(t, "jane@example.com", pending)
	})
}

func TestGateVerifyCode(t *testing.T) {
	sendCode := func(t *testing.T, gate *verification.Gate, channel verification.Channel) {
		t.Helper()
		require.NoError(t, gate.RequestCode(context.Background(), channel))
	}

	t.Run("before any code was requested", func(t *testing.T) {
		gate, backend, _ := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})

		err := gate.VerifyCode(context.Background(), verification.ChannelEmail, "123456")
		require.ErrorIs(t, err, verification.ErrNoCodeSent)
		require.Empty(t, backend.emailVerifies)
	})

	t.Run("malformed codes never reach the network", func(t *testing.T) {
		gate, backend, _ := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})
		sendCode(t, gate, verification.ChannelEmail)

		for _, code := range []string{"", "12345", "1234567", "12345a", "12 456"} {
			err := gate.VerifyCode(context.Background(), verification.ChannelEmail, code)
			require.ErrorIs(t, err, verification.ErrBadCode, code)
		}
		require.Empty(t, backend.emailVerifies)
		require.Zero(t, gate.Attempts(verification.ChannelEmail))
	})

	t.Run("rejected code counts an attempt and stays in CodeSent", func(t *testing.T) {
		gate, backend, _ := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})
		sendCode(t, gate, verification.ChannelEmail)
		backend.verifyErr = gateway.ErrInvalidCode

		err := gate.VerifyCode(context.Background(), verification.ChannelEmail, "000000")
		require.ErrorIs(t, err, gateway.ErrInvalidCode)
		require.Equal(t, verification.StateCodeSent, gate.State(verification.ChannelEmail))
		require.Equal(t, 1, gate.Attempts(verification.ChannelEmail))

		backend.verifyErr = nil
		require.NoError(t, gate.VerifyCode(context.Background(), verification.ChannelEmail, "123456"))
		require.Equal(t, verification.StateVerified, gate.State(verification.ChannelEmail))
	})

	t.Run("verifying twice reports already verified", func(t *testing.T) {
		gate, _, _ := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})
		sendCode(t, gate, verification.ChannelEmail)
		require.NoError(t, gate.VerifyCode(context.Background(), verification.ChannelEmail, "123456"))

		err := gate.VerifyCode(context.Background(), verification.ChannelEmail, "123456")
		require.ErrorIs(t, err, verification.ErrAlreadyVerified)
	})
}

func TestGateRestoreFromBookkeeping(t *testing.T) {
	backend := &fakeBackend{}
	bookkeeping := memory.NewStore()
	bookkeeping.Set("verified_email", "jane@example.com")

	gate, err := verification.New(backend, bookkeeping, verification.Form{
		Email:    "jane@example.com",
		Password: "pw",
	})
	require.NoError(t, err)
	require.Equal(t, verification.StateVerified, gate.State(verification.ChannelEmail))

	t.Run("different identifier is not restored", func(t *testing.T) {
		gate, err := verification.New(backend, bookkeeping, verification.Form{
			Email:    "other@example.com",
			Password: "pw",
		})
		require.NoError(t, err)
		require.Equal(t, verification.StateUnverified, gate.State(verification.ChannelEmail))
	})
}

func TestGateComplete(t *testing.T) {
	t.Run("every entered identifier must be verified", func(t *testing.T) {
		gate, _, _ := setupGate(t, verification.Form{
			Email:    "jane@example.com",
			Phone:    "9876543210",
			Password: "pw",
		})
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		require.NoError(t, gate.VerifyCode(context.Background(), verification.ChannelEmail, "123456"))

		_, err := gate.Complete()
		require.ErrorIs(t, err, verification.ErrIncomplete)
		require.Contains(t, err.Error(), "phone")
	})

	t.Run("placeholder credential refuses completion", func(t *testing.T) {
		gate, _, _ := setupGate(t, verification.Form{Email: "jane@example.com"})
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		require.NoError(t, gate.VerifyCode(context.Background(), verification.ChannelEmail, "123456"))

		_, err := gate.Complete()
		require.ErrorIs(t, err, verification.ErrNoCredential)
	})

	t.Run("cancel clears bookkeeping", func(t *testing.T) {
		gate, _, bookkeeping := setupGate(t, verification.Form{Email: "jane@example.com", Password: "pw"})
		require.NoError(t, gate.RequestCode(context.Background(), verification.ChannelEmail))
		require.NoError(t, gate.VerifyCode(context.Background(), verification.ChannelEmail, "123456"))

		gate.Cancel()
		_, ok := bookkeeping.Get("verified_email")
		require.False(t, ok)
	})
}
