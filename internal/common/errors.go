// Package common contains shared constants and sentinel errors used across
// authfront components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Credential lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrSuperseded marks the result of an operation call that was
	// overtaken by a newer call for the same slot. The caller discards
	// any result carrying it.
	ErrSuperseded = errors.New("superseded by a newer call")
)
