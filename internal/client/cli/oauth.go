package cli

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mbelkin/authfront/internal/client/guard"
)

// OAuthCallback handles a pasted provider redirect. The browser flow
// lands on /oauth/callback with token and/or error query parameters; in
// the terminal the user pastes that URL here. Both outcomes show a
// countdown notice before navigating away.
func (a *App) OAuthCallback(ctx context.Context) error {
	raw, err := getSimpleText(a.reader, "Paste the callback URL you were redirected to", a.out)
	if err != nil {
		return err
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		fmt.Fprintln(a.out, "That does not look like a URL.")
		return nil
	}

	outcome, err := a.session.HandleOAuthCallback(ctx, parsed.Query())
	if err != nil {
		a.renderError(err)
		return nil
	}

	fmt.Fprintln(a.out, outcome.Message)
	a.countdown(outcome.RedirectTo)
	a.navigate(guard.Route(outcome.RedirectTo))
	return nil
}

func (a *App) countdown(target string) {
	for i := 3; i > 0; i-- {
		fmt.Fprintf(a.out, "Redirecting to %s in %d...\n", target, i)
		sleepFn(time.Second)
	}
}
