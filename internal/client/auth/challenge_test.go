package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChallenge_Lifecycle(t *testing.T) {
	var c Challenge
	require.Equal(t, ChallengeIdle, c.State())

	_, _, ok := c.Credentials()
	require.False(t, ok)

	c.Begin("alice", "pw")
	require.Equal(t, ChallengeAwaitingCode, c.State())

	id, pw, ok := c.Credentials()
	require.True(t, ok)
	require.Equal(t, "alice", id)
	require.Equal(t, "pw", pw)

	c.Resolve()
	require.Equal(t, ChallengeResolved, c.State())
	_, _, ok = c.Credentials()
	require.False(t, ok)
}

func TestChallenge_AbandonDropsCredential(t *testing.T) {
	var c Challenge
	c.Begin("alice", "pw")
	c.Abandon()

	require.Equal(t, ChallengeAbandoned, c.State())
	_, _, ok := c.Credentials()
	require.False(t, ok)

	// A fresh step-up signal restarts the challenge.
	c.Begin("bob", "pw2")
	require.Equal(t, ChallengeAwaitingCode, c.State())
}

func TestChallenge_AbandonWithoutBeginStaysOut(t *testing.T) {
	var c Challenge
	c.Abandon()
	require.Equal(t, ChallengeIdle, c.State())
}

func TestChallengeState_String(t *testing.T) {
	require.Equal(t, "idle", ChallengeIdle.String())
	require.Equal(t, "awaiting-code", ChallengeAwaitingCode.String())
	require.Equal(t, "resolved", ChallengeResolved.String())
	require.Equal(t, "abandoned", ChallengeAbandoned.String())
}
