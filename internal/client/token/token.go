// Package token stores the session's bearer credential. The credential is
// treated as an opaque string whose validity only the backend can judge;
// nothing here inspects or signs it.
//
// Two implementations back the same interface: MemStore for per-process
// credentials and FileStore for credentials that must survive process
// restarts. The caller picks the implementation explicitly at construction;
// no environment sniffing happens here or anywhere above.
package token

import "time"

// Options control the stored credential's lifetime and scope. They mirror
// cookie attributes: a zero MaxAge means session-scoped (no recorded
// expiry), Path narrows where the credential applies, Secure marks it as
// transport-protected.
type Options struct {
	MaxAge time.Duration
	Path   string
	Secure bool
}

// Store persists exactly one bearer credential.
//
// Contract:
//   - Set replaces any previously stored credential.
//   - Get reports the credential and whether one is present; an expired
//     credential reads as absent.
//   - Delete removes the credential; deleting an empty store is a no-op.
type Store interface {
	Set(value string, opts Options) error
	Get() (string, bool)
	Delete() error
}
