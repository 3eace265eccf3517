// Package verification gates registration on a possession proof of an
// email address or phone number: provision a shell account, send a
// one-time code, verify it, and only then let registration complete.
package verification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/softwareInkhub/auth-brmh/gateway"
	"github.com/softwareInkhub/auth-brmh/identifier"
	"github.com/softwareInkhub/auth-brmh/storage"
)

// Channel is a verifiable contact channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// State of one channel's verification machine.
type State string

const (
	StateUnverified State = "unverified"
	StateCodeSent   State = "code_sent"
	StateVerified   State = "verified"
)

// Bookkeeping keys in the ephemeral tier. A re-entered flow (page reload)
// reads these to recognize identifiers that are already verified.
const (
	pendingEmailKey  = "pending_verification_email"
	verifiedEmailKey = "verified_email"
	verifiedPhoneKey = "verified_phone"
)

// RegisteredDestination is where a completed registration sends the user.
const RegisteredDestination = "/login?registered=1"

// resendCooldown is the minimum gap between code sends on one channel.
const resendCooldown = 60 * time.Second

// Backend is the slice of the identity API the gate needs.
type Backend interface {
	Register(ctx context.Context, params gateway.RegisterParams) error
	CheckIdentifierExists(ctx context.Context, email, phone string) (gateway.Existence, error)
	SendEmailCode(ctx context.Context, email string) error
	VerifyEmailCode(ctx context.Context, email, code string) error
	SendPhoneCode(ctx context.Context, phone string) error
	VerifyPhoneCode(ctx context.Context, phone, code string) error
}

var _ Backend = (*gateway.Client)(nil)

// Form is the registration input captured before verification starts.
// Password is the credential the shell account is created with; when it
// is empty a random placeholder is used and completion is refused.
type Form struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

type channelState struct {
	state      State
	value      string
	attempts   int
	inFlight   bool
	codeSentAt time.Time
}

// Gate runs the per-channel verification machines for one registration
// attempt. It is safe for concurrent use: a second trigger of a transition
// while one is outstanding gets ErrInFlight instead of a duplicate network
// call. The mutex is released around backend calls.
type Gate struct {
	backend       Backend
	bookkeeping   storage.Store
	classifier    *identifier.Classifier
	form          Form
	nowTime       func() time.Time
	placeholderFn func() string

	mu              sync.Mutex
	channels        map[Channel]*channelState
	provisioned     bool
	usedPlaceholder bool
}

// Option modifies a Gate.
type Option func(*Gate)

// WithClassifier replaces the identifier classifier.
func WithClassifier(classifier *identifier.Classifier) Option {
	return func(g *Gate) { g.classifier = classifier }
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(g *Gate) { g.nowTime = nowFunc }
}

// New creates a Gate for one registration attempt. Identifiers already
// recorded as verified in bookkeeping enter directly in the Verified
// state, so a reloaded form does not resend codes.
func New(backend Backend, bookkeeping storage.Store, form Form, options ...Option) (*Gate, error) {
	if backend == nil {
		return nil, errors.New("[verification.New] backend is required")
	}
	if bookkeeping == nil {
		return nil, errors.New("[verification.New] bookkeeping store is required")
	}
	if form.Email == "" && form.Phone == "" {
		return nil, ErrNoIdentifier
	}

	g := &Gate{
		backend:     backend,
		bookkeeping: bookkeeping,
		classifier:  identifier.New(identifier.DefaultCountryCode),
		form:        form,
		channels:    map[Channel]*channelState{},
		nowTime:     time.Now,
		placeholderFn: func() string {
			return "Tmp1!" + uuid.NewString()
		},
	}
	for _, opt := range options {
		opt(g)
	}

	if form.Email != "" {
		if g.classifier.Classify(form.Email).Kind != identifier.KindEmail {
			return nil, errors.Wrap(ErrNoIdentifier, "email address is not valid")
		}
		g.channels[ChannelEmail] = &channelState{state: StateUnverified, value: form.Email}
	}
	if form.Phone != "" {
		ident := g.classifier.ClassifyContact(form.Phone)
		if ident.Kind != identifier.KindPhone {
			return nil, errors.Wrap(ErrNoIdentifier, "phone number is not valid")
		}
		g.form.Phone = ident.Value
		g.channels[ChannelPhone] = &channelState{state: StateUnverified, value: ident.Value}
	}

	g.restoreVerified()
	return g, nil
}

// restoreVerified lifts channels whose identifier already completed
// verification in this browsing session.
func (g *Gate) restoreVerified() {
	if ch, ok := g.channels[ChannelEmail]; ok {
		if v, found := g.bookkeeping.Get(verifiedEmailKey); found && v == ch.value {
			ch.state = StateVerified
		}
	}
	if ch, ok := g.channels[ChannelPhone]; ok {
		if v, found := g.bookkeeping.Get(verifiedPhoneKey); found && v == ch.value {
			ch.state = StateVerified
		}
	}
}

// State reports the channel's current state. A channel the form never
// entered reports Unverified.
func (g *Gate) State(channel Channel) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.channels[channel]; ok {
		return ch.state
	}
	return StateUnverified
}

// Attempts reports failed code submissions on the channel. Attempts never
// lock the flow locally; rate limiting belongs to the backend.
func (g *Gate) Attempts(channel Channel) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.channels[channel]; ok {
		return ch.attempts
	}
	return 0
}

// RequestCode moves a channel toward CodeSent: probe existence first, then
// either resend to the existing unconfirmed record or provision the shell
// account (whose creation triggers the first code). Calling again while in
// CodeSent is the resend path, rejected inside the resend cooldown.
func (g *Gate) RequestCode(ctx context.Context, channel Channel) error {
	g.mu.Lock()
	ch, ok := g.channels[channel]
	if !ok {
		g.mu.Unlock()
		return errors.Wrapf(ErrNoIdentifier, "no %s was entered", channel)
	}
	if ch.state == StateVerified {
		g.mu.Unlock()
		return ErrAlreadyVerified
	}
	if ch.inFlight {
		g.mu.Unlock()
		return ErrInFlight
	}
	if ch.state == StateCodeSent && g.nowTime().Sub(ch.codeSentAt) < resendCooldown {
		g.mu.Unlock()
		return ErrCooldown
	}
	ch.inFlight = true
	value := ch.value
	provisioned := g.provisioned
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		ch.inFlight = false
		g.mu.Unlock()
	}()

	email, phone := "", ""
	if channel == ChannelEmail {
		email = value
	} else {
		phone = value
	}

	existence, err := g.backend.CheckIdentifierExists(ctx, email, phone)
	if err != nil {
		return errors.Wrap(err, "[Gate.RequestCode] existence probe")
	}

	switch {
	case existence.Exists && existence.Verified:
		// A finished account owns this identifier. The user signs in
		// instead; the channel stays Unverified.
		return ErrAlreadyRegistered

	case existence.Exists:
		if err := g.resend(ctx, channel, value); err != nil {
			return errors.Wrap(err, "[Gate.RequestCode] resend")
		}

	case provisioned:
		// The shell account exists from the other channel's provisioning;
		// this channel only needs its code.
		if err := g.resend(ctx, channel, value); err != nil {
			return errors.Wrap(err, "[Gate.RequestCode] resend")
		}

	default:
		if err := g.provision(ctx); err != nil {
			return errors.Wrap(err, "[Gate.RequestCode] provisioning shell account")
		}
	}

	g.mu.Lock()
	ch.state = StateCodeSent
	ch.codeSentAt = g.nowTime()
	g.mu.Unlock()
	if channel == ChannelEmail {
		g.bookkeeping.Set(pendingEmailKey, value)
	}
	return nil
}

// provision creates the shell account. The captured password becomes the
// account's real credential; a random placeholder is used only when none
// was captured, and Complete refuses in that case.
func (g *Gate) provision(ctx context.Context) error {
	g.mu.Lock()
	password := g.form.Password
	if password == "" {
		password = g.placeholderFn()
		g.usedPlaceholder = true
	}
	params := gateway.RegisterParams{
		FirstName: g.form.FirstName,
		LastName:  g.form.LastName,
		Email:     g.form.Email,
		Phone:     g.form.Phone,
		Password:  password,
	}
	g.mu.Unlock()

	if err := g.backend.Register(ctx, params); err != nil {
		// A concurrent signup may have won the race; the resend path
		// still works for an existing unconfirmed record.
		if !errors.Is(err, gateway.ErrAlreadyExists) {
			return err
		}
	}
	g.mu.Lock()
	g.provisioned = true
	g.mu.Unlock()
	return nil
}

func (g *Gate) resend(ctx context.Context, channel Channel, value string) error {
	if channel == ChannelEmail {
		return g.backend.SendEmailCode(ctx, value)
	}
	return g.backend.SendPhoneCode(ctx, value)
}

// VerifyCode submits a one-time code for the channel. The code must be
// exactly six digits before any network call. Failure keeps the channel
// in CodeSent and counts the attempt.
func (g *Gate) VerifyCode(ctx context.Context, channel Channel, code string) error {
	g.mu.Lock()
	ch, ok := g.channels[channel]
	if !ok {
		g.mu.Unlock()
		return errors.Wrapf(ErrNoIdentifier, "no %s was entered", channel)
	}
	switch ch.state {
	case StateVerified:
		g.mu.Unlock()
		return ErrAlreadyVerified
	case StateUnverified:
		g.mu.Unlock()
		return ErrNoCodeSent
	}
	if !validCode(code) {
		g.mu.Unlock()
		return errors.Wrap(ErrBadCode, "code must be exactly 6 digits")
	}
	if ch.inFlight {
		g.mu.Unlock()
		return ErrInFlight
	}
	ch.inFlight = true
	value := ch.value
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		ch.inFlight = false
		g.mu.Unlock()
	}()

	var err error
	if channel == ChannelEmail {
		err = g.backend.VerifyEmailCode(ctx, value, code)
	} else {
		err = g.backend.VerifyPhoneCode(ctx, value, code)
	}

	g.mu.Lock()
	if err != nil {
		ch.attempts++
		g.mu.Unlock()
		return errors.Wrap(err, "[Gate.VerifyCode]")
	}
	ch.state = StateVerified
	g.mu.Unlock()

	if channel == ChannelEmail {
		g.bookkeeping.Set(verifiedEmailKey, value)
		g.bookkeeping.Delete(pendingEmailKey)
	} else {
		g.bookkeeping.Set(verifiedPhoneKey, value)
	}
	return nil
}

// Complete finishes registration. Every entered identifier must be
// Verified and the shell account must carry the user's own credential.
// The shell account IS the final account; no second signup happens here.
// On success the bookkeeping is cleared and the post-registration
// destination returned.
func (g *Gate) Complete() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	verified := 0
	for channel, ch := range g.channels {
		if ch.state != StateVerified {
			return "", errors.Wrapf(ErrIncomplete, "%s is not verified", channel)
		}
		verified++
	}
	if verified == 0 {
		return "", errors.Wrap(ErrIncomplete, "no identifier was verified")
	}
	if g.usedPlaceholder {
		return "", ErrNoCredential
	}

	g.bookkeeping.Delete(pendingEmailKey)
	g.bookkeeping.Delete(verifiedEmailKey)
	g.bookkeeping.Delete(verifiedPhoneKey)
	return RegisteredDestination, nil
}

// Cancel discards the attempt's bookkeeping without completing.
func (g *Gate) Cancel() {
	g.bookkeeping.Delete(pendingEmailKey)
	g.bookkeeping.Delete(verifiedEmailKey)
	g.bookkeeping.Delete(verifiedPhoneKey)
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
