package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionFromClaimsRequiresAccount(t *testing.T) {
	_, err := SessionFromClaims(nil)
	require.ErrorIs(t, err, ErrNoSession)

	_, err = SessionFromClaims(&Claims{AccountID: " "})
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessionContextRoundTrip(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	require.False(t, ok)

	ctx := WithSession(context.Background(), Session{AccountID: "acct-1"})
	session, ok := SessionFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "acct-1", session.AccountID)
}
