package cli

import (
	"context"
	"fmt"

	"github.com/mbelkin/authfront/internal/client/auth"
	"github.com/mbelkin/authfront/internal/client/guard"
)

// Login prompts for the primary credential and signs in. When the backend
// demands a second factor, it stays on the code prompt until the code
// verifies or the user abandons with an empty line.
func (a *App) Login(ctx context.Context) error {
	identifier, err := getSimpleText(a.reader, "Enter email or phone", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, identifier, password)
	if err != nil {
		a.renderError(err)
		return nil
	}

	if a.session.TwoFactorState() == auth.ChallengeAwaitingCode {
		return a.promptTwoFactorCode(ctx)
	}

	fmt.Fprintf(a.out, "Welcome back, %s!\n", user.Name)
	a.navigate(guard.RouteDashboard)
	return nil
}

func (a *App) promptTwoFactorCode(ctx context.Context) error {
	for a.session.TwoFactorState() == auth.ChallengeAwaitingCode {
		code, err := getSimpleText(a.reader, "Enter the 6-digit code from your authenticator (empty to cancel)", a.out)
		if err != nil {
			return err
		}
		if code == "" {
			a.session.AbandonTwoFactor()
			fmt.Fprintln(a.out, "Sign-in cancelled.")
			return nil
		}

		user, err := a.session.SubmitTwoFactorCode(ctx, code)
		if err != nil {
			a.renderError(err)
			continue
		}
		fmt.Fprintf(a.out, "Welcome back, %s!\n", user.Name)
		a.navigate(guard.RouteDashboard)
	}
	return nil
}

// Register prompts for the registration form and signs the new user in.
func (a *App) Register(ctx context.Context) error {
	var in auth.RegisterInput
	var err error

	if in.Name, err = getSimpleText(a.reader, "Enter your name", a.out); err != nil {
		return err
	}
	if in.Email, err = getSimpleText(a.reader, "Enter email (optional if phone is set)", a.out); err != nil {
		return err
	}
	if in.Phone, err = getSimpleText(a.reader, "Enter phone (optional if email is set)", a.out); err != nil {
		return err
	}
	if in.Password, err = getPassword(a.out, "Enter password"); err != nil {
		return err
	}
	if in.PasswordConfirmation, err = getPassword(a.out, "Confirm password"); err != nil {
		return err
	}
	in.Role = auth.RoleStandard

	user, err := a.session.Register(ctx, in)
	if err != nil {
		a.renderError(err)
		return nil
	}

	fmt.Fprintf(a.out, "Account created. Welcome, %s!\n", user.Name)
	a.navigate(guard.RouteDashboard)
	return nil
}

// Logout clears the session. Local state always clears; a failed
// server-side invalidation is logged inside the store and ignored.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	a.navigate(guard.RouteLogin)
	return nil
}

// WhoAmI prints the cached identity record.
func (a *App) WhoAmI(ctx context.Context) error {
	user, settled := a.session.User()
	if !settled {
		fmt.Fprintln(a.out, "Session is still loading.")
		return nil
	}
	if user == nil {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}

	fmt.Fprintf(a.out, "id:    %d\n", user.ID)
	fmt.Fprintf(a.out, "name:  %s\n", user.Name)
	if user.Email != "" {
		fmt.Fprintf(a.out, "email: %s\n", user.Email)
	}
	if user.Phone != "" {
		fmt.Fprintf(a.out, "phone: %s\n", user.Phone)
	}
	fmt.Fprintf(a.out, "role:  %s\n", user.Role)
	fmt.Fprintf(a.out, "2fa:   %v\n", user.TwoFactorEnabled)
	return nil
}

// hydrate resolves the stored credential on startup so the guard never
// treats an unknown session as anonymous.
func (a *App) hydrate(ctx context.Context) {
	if err := a.session.Hydrate(ctx); err != nil {
		a.log.Warn(ctx, "session hydration failed", "error", err)
		fmt.Fprintln(a.out, "Could not reach the server to restore your session; retry with 'refresh'.")
		return
	}
	if a.isLoggedIn() {
		u, _ := a.session.User()
		fmt.Fprintf(a.out, "Restored session for %s.\n", u.Name)
	}
}
