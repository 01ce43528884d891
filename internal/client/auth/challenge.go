package auth

// ChallengeState tracks the transient two-factor step-up during login. It
// is never persisted; navigating away abandons it.
type ChallengeState int

const (
	ChallengeIdle ChallengeState = iota
	ChallengeAwaitingCode
	ChallengeResolved
	ChallengeAbandoned
)

func (s ChallengeState) String() string {
	switch s {
	case ChallengeIdle:
		return "idle"
	case ChallengeAwaitingCode:
		return "awaiting-code"
	case ChallengeResolved:
		return "resolved"
	case ChallengeAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Challenge holds the pending primary credential between the step-up
// signal and the code submission. Not safe for concurrent use; the session
// store serializes access.
type Challenge struct {
	state      ChallengeState
	identifier string
	password   string
}

func (c *Challenge) State() ChallengeState { return c.state }

// Begin records the primary credential and moves to awaiting-code. It also
// restarts a resolved or abandoned challenge; a fresh step-up signal always
// wins.
func (c *Challenge) Begin(identifier, password string) {
	c.state = ChallengeAwaitingCode
	c.identifier = identifier
	c.password = password
}

// Credentials returns the pending primary credential while a code is
// awaited.
func (c *Challenge) Credentials() (identifier, password string, ok bool) {
	if c.state != ChallengeAwaitingCode {
		return "", "", false
	}
	return c.identifier, c.password, true
}

// Resolve marks the challenge complete and drops the held credential.
func (c *Challenge) Resolve() {
	c.state = ChallengeResolved
	c.identifier = ""
	c.password = ""
}

// Abandon drops the held credential without completing the challenge.
func (c *Challenge) Abandon() {
	if c.state == ChallengeAwaitingCode {
		c.state = ChallengeAbandoned
	}
	c.identifier = ""
	c.password = ""
}

// Reset returns the challenge to idle (e.g., after logout).
func (c *Challenge) Reset() {
	*c = Challenge{}
}
