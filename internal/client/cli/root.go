package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mbelkin/authfront/internal/client/guard"
)

const welcome = "Welcome to authfront. Type 'help' to list commands."

// Run is the interactive loop. It restores any stored session, starts the
// presence watcher, and dispatches commands until EOF, 'exit', or context
// cancellation.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, welcome)

	a.hydrate(ctx)
	if a.isLoggedIn() {
		a.navigate(guard.RouteDashboard)
	}

	go a.StartPresenceWatcher(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(a.out, "[%s]%s ", a.route, a.promptSuffix())
		line, err := a.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out, "bye")
				return nil
			}
			return err
		}

		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		if cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(a.out, "bye")
			return nil
		}

		if err := a.dispatch(ctx, cmd); err != nil {
			return err
		}
	}
}

func (a *App) promptSuffix() string {
	if u, settled := a.session.User(); settled && u != nil {
		return fmt.Sprintf(" %s (%d online)", u.Name, a.onlineCount.Load())
	}
	return ""
}

func (a *App) dispatch(ctx context.Context, cmd string) error {
	switch cmd {
	case "help":
		a.printHelp()
		return nil
	case "whoami":
		return a.WhoAmI(ctx)
	case "online":
		fmt.Fprintf(a.out, "%d users online\n", a.onlineCount.Load())
		return nil
	case "refresh":
		a.hydrate(ctx)
		return nil
	}

	if a.isLoggedIn() {
		switch cmd {
		case "2fa on":
			return a.EnableTwoFactor(ctx)
		case "2fa off":
			return a.DisableTwoFactor(ctx)
		case "logout":
			return a.Logout(ctx)
		}
	} else {
		switch cmd {
		case "login":
			return a.Login(ctx)
		case "register":
			return a.Register(ctx)
		case "forgot":
			return a.ForgotPassword(ctx)
		case "reset":
			return a.ResetPassword(ctx)
		case "oauth":
			return a.OAuthCallback(ctx)
		}
	}

	fmt.Fprintf(a.out, "unknown command %q, type 'help'\n", cmd)
	return nil
}

func (a *App) printHelp() {
	fmt.Fprintln(a.out, "commands:")
	if a.isLoggedIn() {
		fmt.Fprintln(a.out, "  whoami    show the current account")
		fmt.Fprintln(a.out, "  2fa on    enable two-factor authentication")
		fmt.Fprintln(a.out, "  2fa off   disable two-factor authentication")
		fmt.Fprintln(a.out, "  online    show the presence count")
		fmt.Fprintln(a.out, "  logout    sign out")
	} else {
		fmt.Fprintln(a.out, "  login     sign in with email/phone and password")
		fmt.Fprintln(a.out, "  register  create an account")
		fmt.Fprintln(a.out, "  forgot    request a password reset")
		fmt.Fprintln(a.out, "  reset     confirm a password reset")
		fmt.Fprintln(a.out, "  oauth     finish a provider sign-in")
		fmt.Fprintln(a.out, "  refresh   retry restoring a stored session")
	}
	fmt.Fprintln(a.out, "  help      this list")
	fmt.Fprintln(a.out, "  exit      quit")
}
