package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poultrypro/backend/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	m := auth.NewTokenManager("test-secret", time.Hour)

	token, err := m.Issue("owner-1")
	require.NoError(t, err)

	actor, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", actor.OwnerID)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := auth.NewTokenManager("secret-a", time.Hour).Issue("owner-1")
	require.NoError(t, err)

	_, err = auth.NewTokenManager("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	token, err := auth.NewTokenManager("test-secret", -time.Minute).Issue("owner-1")
	require.NoError(t, err)

	_, err = auth.NewTokenManager("test-secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := auth.NewTokenManager("test-secret", time.Hour).Verify("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()

	_, ok := auth.ActorFrom(ctx)
	assert.False(t, ok)

	ctx = auth.WithActor(ctx, auth.Actor{OwnerID: "owner-1"})
	actor, ok := auth.ActorFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "owner-1", actor.OwnerID)

	_, ok = auth.ActorFrom(auth.WithActor(context.Background(), auth.Actor{}))
	assert.False(t, ok, "empty owner id does not count as authenticated")
}
