package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbelkin/authfront/internal/client/api"
	"github.com/mbelkin/authfront/internal/client/auth"
	"github.com/mbelkin/authfront/internal/client/config"
	"github.com/mbelkin/authfront/internal/client/guard"
	"github.com/mbelkin/authfront/internal/client/session"
	"github.com/mbelkin/authfront/internal/client/token"
	"github.com/mbelkin/authfront/internal/logging"
)

// fakeService satisfies auth.Service with canned results per method.
type fakeService struct {
	loginRet    *auth.LoginResult
	loginErr    error
	verifyRet   *auth.LoginResult
	verifyErr   error
	registerRet *auth.LoginResult
	registerErr error
	resetReqRet *auth.ResetDelivery
	resetReqErr error
	resetMsg    string
	resetErr    error
	currentUser *auth.User
	currentErr  error
	enableRet   *auth.TwoFactorProvisioning
	enableErr   error
	confirmErr  error
	disableErr  error

	logoutCalls int
}

func (f *fakeService) Login(ctx context.Context, identifier, password string) (*auth.LoginResult, error) {
	return f.loginRet, f.loginErr
}

func (f *fakeService) VerifyTwoFactorLogin(ctx context.Context, identifier, password, code string) (*auth.LoginResult, error) {
	return f.verifyRet, f.verifyErr
}

func (f *fakeService) Register(ctx context.Context, in auth.RegisterInput) (*auth.LoginResult, error) {
	return f.registerRet, f.registerErr
}

func (f *fakeService) RequestPasswordReset(ctx context.Context, in auth.ResetRequestInput) (*auth.ResetDelivery, error) {
	return f.resetReqRet, f.resetReqErr
}

func (f *fakeService) ResetPassword(ctx context.Context, in auth.ResetInput) (string, error) {
	return f.resetMsg, f.resetErr
}

func (f *fakeService) CurrentUser(ctx context.Context) (*auth.User, error) {
	return f.currentUser, f.currentErr
}

func (f *fakeService) Logout(ctx context.Context) error {
	f.logoutCalls++
	return nil
}

func (f *fakeService) EnableTwoFactor(ctx context.Context) (*auth.TwoFactorProvisioning, error) {
	return f.enableRet, f.enableErr
}

func (f *fakeService) ConfirmTwoFactor(ctx context.Context, code string) error {
	return f.confirmErr
}

func (f *fakeService) DisableTwoFactor(ctx context.Context) error {
	return f.disableErr
}

// stubInputs replaces the interactive input seams with queued answers and
// restores them on cleanup. Text and password prompts consume the same
// queue in prompt order.
func stubInputs(t *testing.T, answers ...string) {
	t.Helper()
	origText, origPass, origSleep := getSimpleText, getPassword, sleepFn
	t.Cleanup(func() {
		getSimpleText, getPassword, sleepFn = origText, origPass, origSleep
	})

	i := 0
	next := func() string {
		if i >= len(answers) {
			return ""
		}
		a := answers[i]
		i++
		return a
	}
	getSimpleText = func(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
		return next(), nil
	}
	getPassword = func(w io.Writer, prompt string) (string, error) {
		return next(), nil
	}
	sleepFn = func(time.Duration) {}
}

func newTestApp(svc auth.Service, input string) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cfg := &config.Config{}
	cfg.LoadDefaults()
	tokens := token.NewMemStore()
	return &App{
		config:  cfg,
		session: session.New(svc, tokens, nil),
		api:     api.New(api.Config{BaseURL: cfg.APIBaseURL, Tokens: tokens}),
		log:     logging.NewNop(),
		reader:  bufio.NewReader(strings.NewReader(input)),
		out:     out,
		route:   guard.RouteLogin,
	}, out
}

func TestLogin_Success(t *testing.T) {
	svc := &fakeService{
		loginRet: &auth.LoginResult{
			User:  &auth.User{ID: 1, Name: "Ada", Role: auth.RoleStandard},
			Token: "tok",
		},
	}
	app, out := newTestApp(svc, "")
	stubInputs(t, "ada@example.com", "Sup3rSecret!")

	require.NoError(t, app.Login(context.Background()))

	require.Contains(t, out.String(), "Welcome back, Ada!")
	require.Equal(t, guard.RouteDashboard, app.route)
	u, settled := app.session.User()
	require.True(t, settled)
	require.Equal(t, int64(1), u.ID)
}

func TestLogin_TwoFactorStepUp(t *testing.T) {
	svc := &fakeService{
		loginRet: &auth.LoginResult{TwoFactorRequired: true},
		verifyRet: &auth.LoginResult{
			User:  &auth.User{ID: 2, Name: "Bob", TwoFactorEnabled: true},
			Token: "tok",
		},
	}
	app, out := newTestApp(svc, "")
	stubInputs(t, "bob@example.com", "Sup3rSecret!", "123456")

	require.NoError(t, app.Login(context.Background()))

	require.Contains(t, out.String(), "Welcome back, Bob!")
	require.Equal(t, auth.ChallengeResolved, app.session.TwoFactorState())
	require.Equal(t, guard.RouteDashboard, app.route)
}

func TestLogin_TwoFactorAbandonedWithEmptyCode(t *testing.T) {
	svc := &fakeService{
		loginRet: &auth.LoginResult{TwoFactorRequired: true},
	}
	app, out := newTestApp(svc, "")
	stubInputs(t, "bob@example.com", "Sup3rSecret!", "")

	require.NoError(t, app.Login(context.Background()))

	require.Contains(t, out.String(), "Sign-in cancelled.")
	require.Equal(t, auth.ChallengeAbandoned, app.session.TwoFactorState())
	u, settled := app.session.User()
	require.False(t, settled && u != nil)
}

func TestLogin_RendersFieldErrors(t *testing.T) {
	svc := &fakeService{
		loginErr: api.ValidationError(map[string][]string{
			"email": {"is invalid"},
		}),
	}
	app, out := newTestApp(svc, "")
	stubInputs(t, "nope", "Sup3rSecret!")

	require.NoError(t, app.Login(context.Background()))
	require.Contains(t, out.String(), "email: is invalid")
}

func TestRegister_Success(t *testing.T) {
	svc := &fakeService{
		registerRet: &auth.LoginResult{
			User:  &auth.User{ID: 3, Name: "Eve"},
			Token: "tok",
		},
	}
	app, out := newTestApp(svc, "")
	stubInputs(t, "Eve", "eve@example.com", "", "Sup3rSecret!", "Sup3rSecret!")

	require.NoError(t, app.Register(context.Background()))
	require.Contains(t, out.String(), "Welcome, Eve!")
	require.Equal(t, guard.RouteDashboard, app.route)
}

func TestLogout_ClearsSessionAndNavigatesToLogin(t *testing.T) {
	svc := &fakeService{
		loginRet: &auth.LoginResult{User: &auth.User{ID: 1, Name: "Ada"}, Token: "tok"},
	}
	app, out := newTestApp(svc, "")
	stubInputs(t, "ada@example.com", "Sup3rSecret!")
	require.NoError(t, app.Login(context.Background()))

	require.NoError(t, app.Logout(context.Background()))

	require.Contains(t, out.String(), "Logged out.")
	require.Equal(t, 1, svc.logoutCalls)
	require.Equal(t, guard.RouteLogin, app.route)
}

func TestForgotPassword_EchoesDebugCode(t *testing.T) {
	svc := &fakeService{
		resetReqRet: &auth.ResetDelivery{
			Message:   "If the account exists, a code was sent.",
			DebugCode: "42deadbeef",
		},
	}
	app, out := newTestApp(svc, "")
	stubInputs(t, "ada@example.com")

	require.NoError(t, app.ForgotPassword(context.Background()))
	require.Contains(t, out.String(), "a code was sent")
	require.Contains(t, out.String(), "42deadbeef")
}

func TestResetPassword_PrintsConfirmation(t *testing.T) {
	svc := &fakeService{resetMsg: "Password updated. You can now log in."}
	app, out := newTestApp(svc, "")
	stubInputs(t, "ada@example.com", "42deadbeef", "N3wSecret!", "N3wSecret!")

	require.NoError(t, app.ResetPassword(context.Background()))
	require.Contains(t, out.String(), "Password updated")
}

func TestEnableTwoFactor_ConfirmFlow(t *testing.T) {
	svc := &fakeService{
		loginRet:  &auth.LoginResult{User: &auth.User{ID: 1, Name: "Ada"}, Token: "tok"},
		enableRet: &auth.TwoFactorProvisioning{Secret: "SECRET", OTPAuthURL: "otpauth://totp/x"},
	}
	app, out := newTestApp(svc, "")
	stubInputs(t, "ada@example.com", "Sup3rSecret!")
	require.NoError(t, app.Login(context.Background()))

	stubInputs(t, "123456")
	require.NoError(t, app.EnableTwoFactor(context.Background()))

	require.Contains(t, out.String(), "SECRET")
	require.Contains(t, out.String(), "now enabled")
	u, _ := app.session.User()
	require.True(t, u.TwoFactorEnabled)
}

func TestOAuthCallback_ProviderErrorRedirectsToLogin(t *testing.T) {
	app, out := newTestApp(&fakeService{}, "")
	stubInputs(t, "http://127.0.0.1/oauth/callback?error=access_denied")

	require.NoError(t, app.OAuthCallback(context.Background()))

	require.Contains(t, out.String(), "cancelled at the provider")
	require.Equal(t, guard.RouteLogin, app.route)
}

func TestOAuthCallback_TokenSignsIn(t *testing.T) {
	svc := &fakeService{currentUser: &auth.User{ID: 7, Name: "Oda"}}
	app, out := newTestApp(svc, "")
	stubInputs(t, "http://127.0.0.1/oauth/callback?token=tok123")

	require.NoError(t, app.OAuthCallback(context.Background()))

	require.Contains(t, out.String(), "Signed in.")
	require.Equal(t, guard.RouteDashboard, app.route)
}

func TestNavigate_AnonymousProtectedRouteRedirects(t *testing.T) {
	svc := &fakeService{}
	app, out := newTestApp(svc, "")
	require.NoError(t, app.session.Hydrate(context.Background()))

	app.navigate(guard.RouteDashboard)

	require.Contains(t, out.String(), "Redirecting to /login")
	require.Equal(t, guard.RouteLogin, app.route)
}

func TestNavigate_UnsettledShowsLoading(t *testing.T) {
	app, out := newTestApp(&fakeService{}, "")

	app.navigate(guard.RouteDashboard)

	require.Contains(t, out.String(), "Loading session...")
}

func TestRun_ExitCommand(t *testing.T) {
	app, out := newTestApp(&fakeService{}, "exit\n")

	require.NoError(t, app.Run(context.Background()))
	require.Contains(t, out.String(), "bye")
}

func TestDispatch_UnknownCommand(t *testing.T) {
	app, out := newTestApp(&fakeService{}, "")
	require.NoError(t, app.session.Hydrate(context.Background()))

	require.NoError(t, app.dispatch(context.Background(), "fly"))
	require.Contains(t, out.String(), `unknown command "fly"`)
}

func TestDispatch_AuthGatedCommands(t *testing.T) {
	svc := &fakeService{
		loginRet: &auth.LoginResult{User: &auth.User{ID: 1, Name: "Ada"}, Token: "tok"},
	}
	app, out := newTestApp(svc, "")

	// Anonymous sessions cannot log out.
	require.NoError(t, app.session.Hydrate(context.Background()))
	require.NoError(t, app.dispatch(context.Background(), "logout"))
	require.Contains(t, out.String(), "unknown command")

	stubInputs(t, "ada@example.com", "Sup3rSecret!")
	require.NoError(t, app.Login(context.Background()))

	// Signed-in sessions cannot start a fresh login.
	out.Reset()
	require.NoError(t, app.dispatch(context.Background(), "login"))
	require.Contains(t, out.String(), "unknown command")
}
