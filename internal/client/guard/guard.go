// Package guard decides what happens before a view renders: show it, show
// a neutral loading state, or redirect. The decision is pure over a
// session snapshot and must be re-evaluated whenever the session settles
// or the route changes; it is never a one-time check.
package guard

import "github.com/mbelkin/authfront/internal/client/auth"

// Route names a navigable view by its canonical path. The dashboard has
// exactly one path; the legacy split between /dashboard and
// /user/dashboard was a defect, not a behavior to keep.
type Route string

const (
	RouteLogin         Route = "/login"
	RouteRegister      Route = "/register"
	RouteResetRequest  Route = "/forgot-password"
	RouteResetConfirm  Route = "/reset-password"
	RouteOAuthCallback Route = "/oauth/callback"
	RouteDashboard     Route = "/dashboard"
	RouteProfile       Route = "/profile"
)

// IsAuthEntry reports whether the route only makes sense for anonymous
// visitors.
func (r Route) IsAuthEntry() bool {
	switch r {
	case RouteLogin, RouteRegister, RouteResetRequest, RouteResetConfirm:
		return true
	}
	return false
}

// RequiresAuth reports whether the route needs a signed-in user.
func (r Route) RequiresAuth() bool {
	switch r {
	case RouteDashboard, RouteProfile:
		return true
	}
	return false
}

type Action int

const (
	ActionAllow Action = iota
	ActionShowLoading
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionShowLoading:
		return "show-loading"
	case ActionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the guard's verdict. Target is only set for ActionRedirect.
type Decision struct {
	Action Action
	Target Route
}

// Session is the read-only slice of session state the guard needs.
type Session interface {
	// User reports the current user (nil for anonymous) and whether the
	// session has settled. Unsettled means unknown, not anonymous.
	User() (*auth.User, bool)
}

// Decide evaluates the boundary check for a route.
func Decide(s Session, route Route) Decision {
	user, settled := s.User()

	if !settled {
		if route.RequiresAuth() || route.IsAuthEntry() {
			// Unknown state: never redirect, never flash the wrong view.
			return Decision{Action: ActionShowLoading}
		}
		return Decision{Action: ActionAllow}
	}

	if user == nil && route.RequiresAuth() {
		return Decision{Action: ActionRedirect, Target: RouteLogin}
	}
	if user != nil && route.IsAuthEntry() {
		return Decision{Action: ActionRedirect, Target: RouteDashboard}
	}
	return Decision{Action: ActionAllow}
}
