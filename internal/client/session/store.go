// Package session owns the client's authentication state: the current
// user, the stored credential, one in-flight flag per operation, and the
// transient two-factor challenge. The store is the single writer of all of
// them; UI components only read state and invoke operations.
package session

import (
	"context"
	"net/url"
	"sync"

	"github.com/mbelkin/authfront/internal/client/api"
	"github.com/mbelkin/authfront/internal/client/auth"
	"github.com/mbelkin/authfront/internal/client/token"
	"github.com/mbelkin/authfront/internal/common"
	"github.com/mbelkin/authfront/internal/logging"
)

// Op identifies an operation slot. Each slot has an independent in-flight
// flag and generation counter.
type Op string

const (
	OpLogin        Op = "login"
	OpRegister     Op = "register"
	OpResetRequest Op = "reset-request"
	OpResetConfirm Op = "reset-confirm"
)

// Redirect targets reported by session-level flows (OAuth callback).
const (
	RedirectLogin     = "/login"
	RedirectDashboard = "/dashboard"
)

type Store struct {
	mu     sync.Mutex
	svc    auth.Service
	tokens token.Store
	log    logging.Logger

	user      *auth.User
	settled   bool
	inflight  map[Op]bool
	gen       map[Op]uint64
	challenge auth.Challenge
	notice    string
}

func New(svc auth.Service, tokens token.Store, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewNop()
	}
	return &Store{
		svc:      svc,
		tokens:   tokens,
		log:      log,
		inflight: make(map[Op]bool),
		gen:      make(map[Op]uint64),
	}
}

// User reports the current user (nil for anonymous) and whether the store
// has settled. Until settled is true the state is unknown, not anonymous;
// render a neutral loading view instead of redirecting.
func (s *Store) User() (*auth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.settled
}

// Loading reports whether the given operation slot has a call in flight.
func (s *Store) Loading(op Op) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight[op]
}

// TwoFactorState exposes the login step-up state machine.
func (s *Store) TwoFactorState() auth.ChallengeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge.State()
}

// AbandonTwoFactor drops a pending step-up, e.g. when the user navigates
// away from the code form.
func (s *Store) AbandonTwoFactor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge.Abandon()
}

// ConsumeNotice returns and clears the pending rate-limit notice.
func (s *Store) ConsumeNotice() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notice
	s.notice = ""
	return n, n != ""
}

// Invalidate clears the cached user after the gateway observed a rejected
// credential outside a session operation. The token store was already
// cleared by the gateway.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.settled = true
}

// Hydrate resolves the stored credential to a user before the store is
// considered settled. With no credential the session settles anonymous
// immediately. A rejected credential also settles anonymous (the service
// answers nil for it); only transport/server failures leave the store
// unsettled so the caller can retry instead of flashing a logged-out view.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.settled || s.user != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if _, ok := s.tokens.Get(); !ok {
		s.mu.Lock()
		s.settled = true
		s.mu.Unlock()
		return nil
	}

	u, err := s.svc.CurrentUser(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.user = u
	s.settled = true
	s.mu.Unlock()
	return nil
}

// Login runs the primary login. Three outcomes:
//   - (user, nil): signed in, credential stored.
//   - (nil, nil): the backend demanded a second factor; the challenge is
//     now awaiting a code (see TwoFactorState, SubmitTwoFactorCode).
//   - (nil, err): failed; user and credential are untouched.
func (s *Store) Login(ctx context.Context, identifier, password string) (*auth.User, error) {
	gen := s.begin(OpLogin)
	res, err := s.svc.Login(ctx, identifier, password)
	if !s.settle(OpLogin, gen) {
		return nil, common.ErrSuperseded
	}
	if err != nil {
		s.noteFailure(ctx, err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.TwoFactorRequired {
		s.challenge.Begin(identifier, password)
		return nil, nil
	}
	s.adoptLocked(res)
	return res.User, nil
}

// SubmitTwoFactorCode completes a pending step-up with the 6-digit code.
// It shares the login slot: the button it backs is the login button.
func (s *Store) SubmitTwoFactorCode(ctx context.Context, code string) (*auth.User, error) {
	s.mu.Lock()
	identifier, password, ok := s.challenge.Credentials()
	s.mu.Unlock()
	if !ok {
		return nil, api.ValidationError(map[string][]string{
			api.RootErrorKey: {"no sign-in is awaiting a code"},
		})
	}

	gen := s.begin(OpLogin)
	res, err := s.svc.VerifyTwoFactorLogin(ctx, identifier, password, code)
	if !s.settle(OpLogin, gen) {
		return nil, common.ErrSuperseded
	}
	if err != nil {
		s.noteFailure(ctx, err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge.Resolve()
	s.adoptLocked(res)
	return res.User, nil
}

// Register creates an account and signs the new user in.
func (s *Store) Register(ctx context.Context, in auth.RegisterInput) (*auth.User, error) {
	gen := s.begin(OpRegister)
	res, err := s.svc.Register(ctx, in)
	if !s.settle(OpRegister, gen) {
		return nil, common.ErrSuperseded
	}
	if err != nil {
		s.noteFailure(ctx, err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.adoptLocked(res)
	return res.User, nil
}

// RequestPasswordReset asks for a reset delivery. No session state changes
// on any outcome.
func (s *Store) RequestPasswordReset(ctx context.Context, in auth.ResetRequestInput) (*auth.ResetDelivery, error) {
	gen := s.begin(OpResetRequest)
	delivery, err := s.svc.RequestPasswordReset(ctx, in)
	if !s.settle(OpResetRequest, gen) {
		return nil, common.ErrSuperseded
	}
	if err != nil {
		s.noteFailure(ctx, err)
		return nil, err
	}
	return delivery, nil
}

// ResetPassword confirms a reset with the delivered code and new password.
// No session state changes on any outcome.
func (s *Store) ResetPassword(ctx context.Context, in auth.ResetInput) (string, error) {
	gen := s.begin(OpResetConfirm)
	msg, err := s.svc.ResetPassword(ctx, in)
	if !s.settle(OpResetConfirm, gen) {
		return "", common.ErrSuperseded
	}
	if err != nil {
		s.noteFailure(ctx, err)
		return "", err
	}
	return msg, nil
}

// Logout clears the local session unconditionally. The server-side
// invalidation is best-effort: a failure there is logged and ignored,
// never a reason to keep the local session alive.
func (s *Store) Logout(ctx context.Context) {
	if err := s.svc.Logout(ctx); err != nil {
		s.log.Warn(ctx, "server-side logout failed, clearing local session anyway", "error", err)
	}

	_ = s.tokens.Delete()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.settled = true
	s.notice = ""
	s.challenge.Reset()
}

// EnableTwoFactor starts 2FA enrollment. Nothing changes on the user
// record until the code is confirmed.
func (s *Store) EnableTwoFactor(ctx context.Context) (*auth.TwoFactorProvisioning, error) {
	p, err := s.svc.EnableTwoFactor(ctx)
	if err != nil {
		s.noteFailure(ctx, err)
		return nil, err
	}
	return p, nil
}

// ConfirmTwoFactor verifies the enrollment code and flips the cached
// user's two-factor flag.
func (s *Store) ConfirmTwoFactor(ctx context.Context, code string) error {
	if err := s.svc.ConfirmTwoFactor(ctx, code); err != nil {
		s.noteFailure(ctx, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		u := s.user.WithTwoFactor(true)
		s.user = &u
	}
	return nil
}

// DisableTwoFactor turns 2FA off and flips the cached user's flag.
func (s *Store) DisableTwoFactor(ctx context.Context) error {
	if err := s.svc.DisableTwoFactor(ctx); err != nil {
		s.noteFailure(ctx, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		u := s.user.WithTwoFactor(false)
		s.user = &u
	}
	return nil
}

// begin opens a new generation for the slot and raises its flag.
func (s *Store) begin(op Op) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[op]++
	s.inflight[op] = true
	return s.gen[op]
}

// settle reports whether gen is still the latest call for the slot. Only
// the latest call lowers the flag and gets to apply its result; results of
// superseded calls are discarded, regardless of arrival order.
func (s *Store) settle(op Op, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen[op] {
		return false
	}
	s.inflight[op] = false
	return true
}

// adoptLocked installs a successful login/register result: credential
// first, then the user record. Callers hold s.mu.
func (s *Store) adoptLocked(res *auth.LoginResult) {
	if res.Token != "" {
		_ = s.tokens.Set(res.Token, token.Options{Path: "/"})
	}
	s.user = res.User
	s.settled = true
	s.notice = ""
}

// noteFailure records the session-level consequences of a failed call:
// a 401 destroys the cached user (the gateway already dropped the
// credential), a 429 raises a user-visible notice. Everything else leaves
// session state untouched.
func (s *Store) noteFailure(ctx context.Context, err error) {
	switch {
	case api.IsUnauthorized(err):
		s.mu.Lock()
		s.user = nil
		s.settled = true
		s.mu.Unlock()
	case api.IsRateLimited(err):
		s.mu.Lock()
		if e, ok := api.AsError(err); ok && e.Message != "" {
			s.notice = e.Message
		} else {
			s.notice = "too many attempts, please wait before retrying"
		}
		s.mu.Unlock()
		s.log.Warn(ctx, "rate limited", "error", err)
	}
}

// OAuthOutcome is the result of handling a provider redirect: the view
// shows Message, then navigates to RedirectTo.
type OAuthOutcome struct {
	User       *auth.User
	Message    string
	RedirectTo string
}

// Messages for the known provider error codes. Unknown codes get a
// generic failure message.
var oauthFailures = map[string]string{
	"access_denied":  "Sign-in was cancelled at the provider.",
	"provider_error": "The provider could not complete sign-in.",
	"email_taken":    "An account with this email already exists. Log in with your password instead.",
	"invalid_state":  "The sign-in link has expired. Please try again.",
}

// HandleOAuthCallback processes the provider redirect query: an error code
// maps to a known message and a login redirect; a token is exchanged for a
// stored credential plus a user fetch. The returned error covers only the
// token-exchange path; provider failures are expressed in the outcome.
func (s *Store) HandleOAuthCallback(ctx context.Context, query url.Values) (*OAuthOutcome, error) {
	if code := query.Get("error"); code != "" {
		msg, known := oauthFailures[code]
		if !known {
			msg = "Sign-in failed. Please try again."
			s.log.Warn(ctx, "unknown oauth error code", "code", code)
		}
		return &OAuthOutcome{Message: msg, RedirectTo: RedirectLogin}, nil
	}

	t := query.Get("token")
	if t == "" {
		return &OAuthOutcome{
			Message:    "The sign-in response was incomplete. Please try again.",
			RedirectTo: RedirectLogin,
		}, nil
	}

	if err := s.tokens.Set(t, token.Options{Path: "/"}); err != nil {
		return nil, err
	}

	u, err := s.svc.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		// The exchanged token was rejected; the gateway dropped it.
		return &OAuthOutcome{
			Message:    "Sign-in could not be completed. Please try again.",
			RedirectTo: RedirectLogin,
		}, nil
	}

	s.mu.Lock()
	s.user = u
	s.settled = true
	s.mu.Unlock()

	return &OAuthOutcome{User: u, Message: "Signed in.", RedirectTo: RedirectDashboard}, nil
}
