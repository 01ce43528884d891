package session

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbelkin/authfront/internal/client/api"
	"github.com/mbelkin/authfront/internal/client/auth"
	"github.com/mbelkin/authfront/internal/client/token"
	"github.com/mbelkin/authfront/internal/common"
)

// ---- fake service ----

// fakeService implements auth.Service for store tests. Fixed Ret/Err
// fields cover most cases; the optional fn hooks let individual tests
// control timing.
type fakeService struct {
	mu sync.Mutex

	loginFn  func(ctx context.Context, identifier, password string) (*auth.LoginResult, error)
	LoginRet *auth.LoginResult
	LoginErr error

	VerifyRet *auth.LoginResult
	VerifyErr error

	RegisterRet *auth.LoginResult
	RegisterErr error

	ResetReqRet *auth.ResetDelivery
	ResetReqErr error

	ResetRet string
	ResetErr error

	CurrentRet *auth.User
	CurrentErr error

	LogoutErr error

	EnableRet  *auth.TwoFactorProvisioning
	EnableErr  error
	ConfirmErr error
	DisableErr error

	LoginCalls   int
	VerifyCalls  int
	CurrentCalls int
	LogoutCalls  int

	LastVerifyIdentifier string
	LastVerifyCode       string
}

func (f *fakeService) Login(ctx context.Context, identifier, password string) (*auth.LoginResult, error) {
	f.mu.Lock()
	f.LoginCalls++
	fn := f.loginFn
	ret, err := f.LoginRet, f.LoginErr
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, identifier, password)
	}
	return ret, err
}

func (f *fakeService) VerifyTwoFactorLogin(ctx context.Context, identifier, password, code string) (*auth.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.VerifyCalls++
	f.LastVerifyIdentifier = identifier
	f.LastVerifyCode = code
	return f.VerifyRet, f.VerifyErr
}

func (f *fakeService) Register(ctx context.Context, in auth.RegisterInput) (*auth.LoginResult, error) {
	return f.RegisterRet, f.RegisterErr
}

func (f *fakeService) RequestPasswordReset(ctx context.Context, in auth.ResetRequestInput) (*auth.ResetDelivery, error) {
	return f.ResetReqRet, f.ResetReqErr
}

func (f *fakeService) ResetPassword(ctx context.Context, in auth.ResetInput) (string, error) {
	return f.ResetRet, f.ResetErr
}

func (f *fakeService) CurrentUser(ctx context.Context) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentCalls++
	return f.CurrentRet, f.CurrentErr
}

func (f *fakeService) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	return f.LogoutErr
}

func (f *fakeService) EnableTwoFactor(ctx context.Context) (*auth.TwoFactorProvisioning, error) {
	return f.EnableRet, f.EnableErr
}

func (f *fakeService) ConfirmTwoFactor(ctx context.Context, code string) error {
	return f.ConfirmErr
}

func (f *fakeService) DisableTwoFactor(ctx context.Context) error {
	return f.DisableErr
}

func alice() *auth.User {
	return &auth.User{ID: 7, Name: "Alice", Email: "alice@example.org", Role: auth.RoleStandard}
}

func newStore(f *fakeService) (*Store, *token.MemStore) {
	tokens := token.NewMemStore()
	return New(f, tokens, nil), tokens
}

// ---- tests ----

func TestLogin_SuccessSetsUserAndCredential(t *testing.T) {
	f := &fakeService{LoginRet: &auth.LoginResult{User: alice(), Token: "tok-1"}}
	s, tokens := newStore(f)

	u, err := s.Login(context.Background(), "alice@example.org", "pw")
	require.NoError(t, err)
	require.Equal(t, "Alice", u.Name)

	got, settled := s.User()
	require.True(t, settled)
	require.Equal(t, int64(7), got.ID)

	v, ok := tokens.Get()
	require.True(t, ok)
	require.Equal(t, "tok-1", v)

	require.False(t, s.Loading(OpLogin))
}

func TestLogin_FailureLeavesStateUntouched(t *testing.T) {
	f := &fakeService{LoginErr: &api.Error{Message: "invalid credentials", Status: 422}}
	s, tokens := newStore(f)

	_, err := s.Login(context.Background(), "alice@example.org", "wrong")
	require.Error(t, err)

	u, _ := s.User()
	require.Nil(t, u)
	_, ok := tokens.Get()
	require.False(t, ok)
	require.False(t, s.Loading(OpLogin))
}

func TestLogin_StepUpTransitionsChallenge(t *testing.T) {
	f := &fakeService{LoginRet: &auth.LoginResult{TwoFactorRequired: true}}
	s, tokens := newStore(f)

	u, err := s.Login(context.Background(), "alice@example.org", "pw")
	require.NoError(t, err)
	require.Nil(t, u)
	require.Equal(t, auth.ChallengeAwaitingCode, s.TwoFactorState())

	// No user, no credential until the code is verified.
	got, _ := s.User()
	require.Nil(t, got)
	_, ok := tokens.Get()
	require.False(t, ok)

	f.VerifyRet = &auth.LoginResult{User: alice(), Token: "tok-2fa"}
	u, err = s.SubmitTwoFactorCode(context.Background(), "123456")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, auth.ChallengeResolved, s.TwoFactorState())
	require.Equal(t, "alice@example.org", f.LastVerifyIdentifier)
	require.Equal(t, "123456", f.LastVerifyCode)

	v, ok := tokens.Get()
	require.True(t, ok)
	require.Equal(t, "tok-2fa", v)
}

func TestSubmitTwoFactorCode_WithoutChallenge(t *testing.T) {
	f := &fakeService{}
	s, _ := newStore(f)

	_, err := s.SubmitTwoFactorCode(context.Background(), "123456")
	require.True(t, api.IsValidation(err))
	require.Zero(t, f.VerifyCalls)
}

func TestAbandonTwoFactor(t *testing.T) {
	f := &fakeService{LoginRet: &auth.LoginResult{TwoFactorRequired: true}}
	s, _ := newStore(f)

	_, _ = s.Login(context.Background(), "alice@example.org", "pw")
	s.AbandonTwoFactor()
	require.Equal(t, auth.ChallengeAbandoned, s.TwoFactorState())

	_, err := s.SubmitTwoFactorCode(context.Background(), "123456")
	require.Error(t, err)
}

func TestLogout_ClearsLocallyEvenWhenServerUnreachable(t *testing.T) {
	f := &fakeService{
		LoginRet:  &auth.LoginResult{User: alice(), Token: "tok-1"},
		LogoutErr: &api.Error{Message: "server is unreachable", Status: api.StatusNetwork},
	}
	s, tokens := newStore(f)

	_, err := s.Login(context.Background(), "alice@example.org", "pw")
	require.NoError(t, err)

	s.Logout(context.Background())
	require.Equal(t, 1, f.LogoutCalls)

	u, settled := s.User()
	require.True(t, settled)
	require.Nil(t, u)

	_, ok := tokens.Get()
	require.False(t, ok)
}

func TestHydrate_NoCredentialSettlesAnonymous(t *testing.T) {
	f := &fakeService{}
	s, _ := newStore(f)

	_, settled := s.User()
	require.False(t, settled)

	require.NoError(t, s.Hydrate(context.Background()))

	u, settled := s.User()
	require.True(t, settled)
	require.Nil(t, u)
	require.Zero(t, f.CurrentCalls)
}

func TestHydrate_RejectedCredentialSettlesAnonymousWithoutError(t *testing.T) {
	// The service answers (nil, nil) for a rejected credential; the
	// gateway has already removed it from the store.
	f := &fakeService{CurrentRet: nil, CurrentErr: nil}
	s, tokens := newStore(f)
	require.NoError(t, tokens.Set("stale", token.Options{}))

	require.NoError(t, s.Hydrate(context.Background()))

	u, settled := s.User()
	require.True(t, settled)
	require.Nil(t, u)
	require.Equal(t, 1, f.CurrentCalls)
}

func TestHydrate_TransportFailureLeavesUnsettled(t *testing.T) {
	f := &fakeService{CurrentErr: &api.Error{Message: "unreachable", Status: api.StatusNetwork}}
	s, tokens := newStore(f)
	require.NoError(t, tokens.Set("tok", token.Options{}))

	require.Error(t, s.Hydrate(context.Background()))

	_, settled := s.User()
	require.False(t, settled)
}

func TestHydrate_ResolvesStoredCredential(t *testing.T) {
	f := &fakeService{CurrentRet: alice()}
	s, tokens := newStore(f)
	require.NoError(t, tokens.Set("tok", token.Options{}))

	require.NoError(t, s.Hydrate(context.Background()))

	u, settled := s.User()
	require.True(t, settled)
	require.Equal(t, "Alice", u.Name)

	// Hydrating again is a no-op.
	require.NoError(t, s.Hydrate(context.Background()))
	require.Equal(t, 1, f.CurrentCalls)
}

func TestLogin_RapidRefire_LastInitiatedWins(t *testing.T) {
	release := make(map[string]chan struct{}, 2)
	release["first"] = make(chan struct{})
	release["second"] = make(chan struct{})

	f := &fakeService{}
	f.loginFn = func(ctx context.Context, identifier, password string) (*auth.LoginResult, error) {
		<-release[identifier]
		return &auth.LoginResult{
			User:  &auth.User{ID: 1, Name: identifier, Role: auth.RoleStandard},
			Token: "tok-" + identifier,
		}, nil
	}
	s, tokens := newStore(f)

	type outcome struct {
		user *auth.User
		err  error
	}
	results := make(chan outcome, 2)

	var started sync.WaitGroup
	started.Add(1)
	go func() {
		started.Done()
		u, err := s.Login(context.Background(), "first", "pw")
		results <- outcome{u, err}
	}()
	started.Wait()
	// Make sure the first call registered its generation before firing the
	// second one.
	require.Eventually(t, func() bool { return s.Loading(OpLogin) }, time.Second, time.Millisecond)

	go func() {
		u, err := s.Login(context.Background(), "second", "pw")
		results <- outcome{u, err}
	}()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.LoginCalls == 2
	}, time.Second, time.Millisecond)

	// Resolve out of order: the second (latest) call first, then the first.
	close(release["second"])
	var second outcome
	select {
	case second = <-results:
	case <-time.After(time.Second):
		t.Fatal("second login did not settle")
	}
	require.NoError(t, second.err)
	require.Equal(t, "second", second.user.Name)
	require.False(t, s.Loading(OpLogin))

	close(release["first"])
	var first outcome
	select {
	case first = <-results:
	case <-time.After(time.Second):
		t.Fatal("first login did not settle")
	}
	require.ErrorIs(t, first.err, common.ErrSuperseded)

	// The superseded result was discarded: state reflects the call
	// initiated last, not the one that resolved last.
	u, _ := s.User()
	require.Equal(t, "second", u.Name)
	v, _ := tokens.Get()
	require.Equal(t, "tok-second", v)
}

func TestRateLimitRaisesNotice(t *testing.T) {
	f := &fakeService{LoginErr: &api.Error{Message: "slow down", Status: 429}}
	s, _ := newStore(f)

	_, err := s.Login(context.Background(), "alice@example.org", "pw")
	require.True(t, api.IsRateLimited(err))

	notice, ok := s.ConsumeNotice()
	require.True(t, ok)
	require.Equal(t, "slow down", notice)

	// Consumed: gone.
	_, ok = s.ConsumeNotice()
	require.False(t, ok)

	// No session state was altered.
	u, _ := s.User()
	require.Nil(t, u)
}

func TestUnauthorizedFailureDestroysUser(t *testing.T) {
	f := &fakeService{LoginRet: &auth.LoginResult{User: alice(), Token: "tok"}}
	s, _ := newStore(f)
	_, err := s.Login(context.Background(), "alice@example.org", "pw")
	require.NoError(t, err)

	f.mu.Lock()
	f.LoginRet, f.LoginErr = nil, &api.Error{Message: "expired", Status: 401}
	f.mu.Unlock()

	_, err = s.Login(context.Background(), "alice@example.org", "pw")
	require.True(t, api.IsUnauthorized(err))

	u, settled := s.User()
	require.True(t, settled)
	require.Nil(t, u)
}

func TestRegister_SuccessSignsIn(t *testing.T) {
	f := &fakeService{RegisterRet: &auth.LoginResult{User: alice(), Token: "tok-r"}}
	s, tokens := newStore(f)

	u, err := s.Register(context.Background(), auth.RegisterInput{Name: "Alice"})
	require.NoError(t, err)
	require.NotNil(t, u)

	v, ok := tokens.Get()
	require.True(t, ok)
	require.Equal(t, "tok-r", v)
	require.False(t, s.Loading(OpRegister))
}

func TestPasswordResetFlow_DoesNotTouchSession(t *testing.T) {
	f := &fakeService{
		ResetReqRet: &auth.ResetDelivery{Message: "sent", DebugCode: "c0de"},
		ResetRet:    "password updated",
	}
	s, tokens := newStore(f)

	d, err := s.RequestPasswordReset(context.Background(), auth.ResetRequestInput{Email: "a@b.c"})
	require.NoError(t, err)
	require.Equal(t, "c0de", d.DebugCode)

	msg, err := s.ResetPassword(context.Background(), auth.ResetInput{})
	require.NoError(t, err)
	require.Equal(t, "password updated", msg)

	u, _ := s.User()
	require.Nil(t, u)
	_, ok := tokens.Get()
	require.False(t, ok)
	require.False(t, s.Loading(OpResetRequest))
	require.False(t, s.Loading(OpResetConfirm))
}

func TestConfirmTwoFactor_FlipsUserFlag(t *testing.T) {
	f := &fakeService{LoginRet: &auth.LoginResult{User: alice(), Token: "tok"}}
	s, _ := newStore(f)
	_, _ = s.Login(context.Background(), "alice@example.org", "pw")

	require.NoError(t, s.ConfirmTwoFactor(context.Background(), "123456"))
	u, _ := s.User()
	require.True(t, u.TwoFactorEnabled)

	require.NoError(t, s.DisableTwoFactor(context.Background()))
	u, _ = s.User()
	require.False(t, u.TwoFactorEnabled)
}

func TestHandleOAuthCallback_KnownError(t *testing.T) {
	s, _ := newStore(&fakeService{})

	out, err := s.HandleOAuthCallback(context.Background(), url.Values{"error": {"access_denied"}})
	require.NoError(t, err)
	require.Equal(t, RedirectLogin, out.RedirectTo)
	require.Contains(t, out.Message, "cancelled")
	require.Nil(t, out.User)
}

func TestHandleOAuthCallback_UnknownErrorGetsGenericMessage(t *testing.T) {
	s, _ := newStore(&fakeService{})

	out, err := s.HandleOAuthCallback(context.Background(), url.Values{"error": {"mystery_code"}})
	require.NoError(t, err)
	require.Equal(t, RedirectLogin, out.RedirectTo)
	require.NotEmpty(t, out.Message)
}

func TestHandleOAuthCallback_TokenExchange(t *testing.T) {
	f := &fakeService{CurrentRet: alice()}
	s, tokens := newStore(f)

	out, err := s.HandleOAuthCallback(context.Background(), url.Values{"token": {"oauth-tok"}})
	require.NoError(t, err)
	require.Equal(t, RedirectDashboard, out.RedirectTo)
	require.Equal(t, "Alice", out.User.Name)

	v, ok := tokens.Get()
	require.True(t, ok)
	require.Equal(t, "oauth-tok", v)

	u, settled := s.User()
	require.True(t, settled)
	require.NotNil(t, u)
}

func TestHandleOAuthCallback_RejectedToken(t *testing.T) {
	f := &fakeService{CurrentRet: nil}
	s, _ := newStore(f)

	out, err := s.HandleOAuthCallback(context.Background(), url.Values{"token": {"bad"}})
	require.NoError(t, err)
	require.Equal(t, RedirectLogin, out.RedirectTo)
	require.Nil(t, out.User)
}

func TestHandleOAuthCallback_EmptyQuery(t *testing.T) {
	s, _ := newStore(&fakeService{})

	out, err := s.HandleOAuthCallback(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Equal(t, RedirectLogin, out.RedirectTo)
}

func TestInvalidate(t *testing.T) {
	f := &fakeService{LoginRet: &auth.LoginResult{User: alice(), Token: "tok"}}
	s, _ := newStore(f)
	_, _ = s.Login(context.Background(), "alice@example.org", "pw")

	s.Invalidate()
	u, settled := s.User()
	require.True(t, settled)
	require.Nil(t, u)
}

func TestLoadingFlag_TrueWhileInFlight(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeService{}
	f.loginFn = func(ctx context.Context, identifier, password string) (*auth.LoginResult, error) {
		<-gate
		return nil, errors.New("boom")
	}
	s, _ := newStore(f)

	done := make(chan struct{})
	go func() {
		_, _ = s.Login(context.Background(), "a", "b")
		close(done)
	}()

	require.Eventually(t, func() bool { return s.Loading(OpLogin) }, time.Second, time.Millisecond)
	close(gate)
	<-done

	// The flag resets on the failure path too.
	require.False(t, s.Loading(OpLogin))
}
