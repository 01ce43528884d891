// Package cli is the interactive terminal front end. It binds every
// session operation to a REPL command, renders gateway errors as inline
// field messages plus a root-level banner, and runs the route guard on
// every navigation and settle.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/mbelkin/authfront/internal/client/api"
	"github.com/mbelkin/authfront/internal/client/auth"
	"github.com/mbelkin/authfront/internal/client/config"
	"github.com/mbelkin/authfront/internal/client/guard"
	"github.com/mbelkin/authfront/internal/client/presence"
	"github.com/mbelkin/authfront/internal/client/session"
	"github.com/mbelkin/authfront/internal/client/token"
	"github.com/mbelkin/authfront/internal/common"
	"github.com/mbelkin/authfront/internal/logging"
)

// getSimpleText and getPassword are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in
// tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	sleepFn       = time.Sleep
)

type App struct {
	config  *config.Config
	session *session.Store
	api     *api.Client
	log     logging.Logger

	reader *bufio.Reader
	out    io.Writer

	route       guard.Route
	onlineCount atomic.Int64
}

func NewApp(cfg *config.Config, log logging.Logger) *App {
	if log == nil {
		log = logging.NewNop()
	}

	// Explicit storage-medium selection: a configured file path means the
	// credential must survive restarts; otherwise it stays in memory.
	var tokens token.Store
	if cfg.TokenFile != "" {
		tokens = token.NewFileStore(cfg.TokenFile)
	} else {
		tokens = token.NewMemStore()
	}

	apiClient := api.New(api.Config{
		BaseURL: cfg.APIBaseURL,
		Tokens:  tokens,
		Logger:  log,
	})
	svc := auth.NewHTTPService(apiClient)
	sess := session.New(svc, tokens, log)

	a := &App{
		config:  cfg,
		session: sess,
		api:     apiClient,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		route:   guard.RouteLogin,
	}

	apiClient.SetOnUnauthorized(func() {
		sess.Invalidate()
		fmt.Fprintln(a.out, "Your session has expired. Please log in again.")
	})

	return a
}

func (a *App) isLoggedIn() bool {
	u, settled := a.session.User()
	return settled && u != nil
}

// navigate applies the guard to the requested route, following at most
// one redirect hop (a redirect target is always allowed for the state
// that produced it).
func (a *App) navigate(to guard.Route) {
	for hops := 0; hops < 2; hops++ {
		d := guard.Decide(a.session, to)
		switch d.Action {
		case guard.ActionShowLoading:
			fmt.Fprintln(a.out, "Loading session...")
			a.route = to
			return
		case guard.ActionRedirect:
			fmt.Fprintf(a.out, "Redirecting to %s\n", d.Target)
			to = d.Target
			continue
		default:
			a.route = to
			return
		}
	}
	a.route = to
}

// StartPresenceWatcher subscribes the dashboard shell to the online-users
// channel. Blocking; run in a goroutine.
func (a *App) StartPresenceWatcher(ctx context.Context) {
	w := presence.NewWatcher(a.api, a.config.PresenceChannel, a.config.PresencePollInterval, a.log, func(count int) {
		a.onlineCount.Store(int64(count))
	})
	w.Run(ctx)
}

// renderError maps a failed operation to UI state: inline messages for
// field errors, a single root-level banner for everything else. Results
// of superseded calls were already discarded and render nothing.
func (a *App) renderError(err error) {
	if err == nil || errors.Is(err, common.ErrSuperseded) {
		return
	}

	if apiErr, ok := api.AsError(err); ok {
		for field, messages := range apiErr.Fields {
			for _, m := range messages {
				if field == api.RootErrorKey {
					fmt.Fprintf(a.out, "  %s\n", m)
				} else {
					fmt.Fprintf(a.out, "  %s: %s\n", field, m)
				}
			}
		}
		if len(apiErr.Fields) == 0 || !api.IsValidation(err) {
			fmt.Fprintf(a.out, "Error: %s\n", apiErr.Message)
		}
	} else {
		fmt.Fprintf(a.out, "Error: %s\n", err)
	}

	if notice, ok := a.session.ConsumeNotice(); ok {
		fmt.Fprintf(a.out, "Notice: %s\n", notice)
	}
}
